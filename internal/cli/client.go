package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

// clientField binds one string field of a client to a flag. Fields backed by
// an option list only accept values from that list.
type clientField struct {
	flag   string
	usage  string
	option types.OptionField
	field  func(*types.Client) *string
}

var clientFields = []clientField{
	{"tax-id", "NIT, CUR or CI (required)", "", func(c *types.Client) *string { return &c.TaxID }},
	{"legal-name", "legal name (required)", "", func(c *types.Client) *string { return &c.LegalName }},
	{"email", "email address (required)", "", func(c *types.Client) *string { return &c.Email }},
	{"password", "portal password", "", func(c *types.Client) *string { return &c.Password }},
	{"taxpayer-type", "taxpayer type", types.OptionTaxpayerType, func(c *types.Client) *string { return &c.TaxpayerType }},
	{"entity-type", "entity type", types.OptionEntityType, func(c *types.Client) *string { return &c.EntityType }},
	{"contact", "contact phone", "", func(c *types.Client) *string { return &c.Contact }},
	{"administration", "administration", types.OptionAdministration, func(c *types.Client) *string { return &c.Administration }},
	{"billing", "billing mode", types.OptionBilling, func(c *types.Client) *string { return &c.Billing }},
	{"regime", "tax regime", types.OptionRegime, func(c *types.Client) *string { return &c.Regime }},
	{"activity", "economic activity", "", func(c *types.Client) *string { return &c.Activity }},
	{"consolidation", "consolidation period", types.OptionConsolidation, func(c *types.Client) *string { return &c.Consolidation }},
	{"manager", "person in charge", types.OptionManager, func(c *types.Client) *string { return &c.Manager }},
	{"address", "address", "", func(c *types.Client) *string { return &c.Address }},
}

func bindClientFlags(cmd *cobra.Command, c *types.Client) {
	for _, f := range clientFields {
		cmd.Flags().StringVar(f.field(c), f.flag, "", f.usage)
	}
}

// applyChangedFields copies the fields whose flags were set from src to dst.
func applyChangedFields(cmd *cobra.Command, dst, src *types.Client) {
	for _, f := range clientFields {
		if cmd.Flags().Changed(f.flag) {
			*f.field(dst) = strings.TrimSpace(*f.field(src))
		}
	}
}

// checkOptionValues rejects categorical values missing from their option list.
func checkOptionValues(c *types.Client, lists types.OptionLists) error {
	ve := &types.ValidationError{Kind: "client"}
	for _, f := range clientFields {
		v := *f.field(c)
		if f.option == "" || v == "" {
			continue
		}
		allowed, err := lists.Values(f.option)
		if err != nil {
			return err
		}
		if !slices.Contains(allowed, v) {
			ve.Fields = append(ve.Fields, types.FieldError{Field: string(f.option), Rule: "oneof=" + strings.Join(allowed, "|")})
		}
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

func newClientCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage clients",
	}
	cmd.AddCommand(
		newClientListCmd(a),
		newClientShowCmd(a),
		newClientAddCmd(a),
		newClientUpdateCmd(a),
		newClientDeleteCmd(a),
		newClientTagCmd(a, true),
		newClientTagCmd(a, false),
	)
	return cmd
}

type clientListOptions struct {
	filter  query.ClientFilter
	tag     string
	page    int
	perPage int
	all     bool
}

// clientPage is the JSON shape of one page of clients.
type clientPage struct {
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalPages int             `json:"totalPages"`
	Total      int             `json:"total"`
	Clients    []*types.Client `json:"clientes"`
}

func newClientListCmd(a *app) *cobra.Command {
	var opts clientListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Long: `List clients sorted by legal name, one page at a time.

Filters combine with AND; empty filters place no constraint.

Example:
  consultora client list
  consultora client list --search acme --page 2
  consultora client list --tax-digit 7 --regime General
  consultora client list --tag Urgente --all --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClientList(opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.filter.Search, "search", "", "substring of tax ID, legal name or email")
	f.StringVar(&opts.filter.TaxIDLastDigit, "tax-digit", "", "last digit of the tax ID")
	f.StringVar(&opts.filter.TaxpayerType, "taxpayer-type", "", "taxpayer type")
	f.StringVar(&opts.filter.EntityType, "entity-type", "", "entity type")
	f.StringVar(&opts.filter.Administration, "administration", "", "administration")
	f.StringVar(&opts.filter.Billing, "billing", "", "billing mode")
	f.StringVar(&opts.filter.Regime, "regime", "", "tax regime")
	f.StringVar(&opts.filter.Consolidation, "consolidation", "", "consolidation period")
	f.StringVar(&opts.filter.Manager, "manager", "", "person in charge")
	f.StringVar(&opts.tag, "tag", "", "tag ID or name")
	f.IntVar(&opts.page, "page", 1, "page number")
	f.IntVar(&opts.perPage, "per-page", query.DefaultPerPage, "clients per page")
	f.BoolVar(&opts.all, "all", false, "list every match on one page")
	return cmd
}

func (a *app) runClientList(opts clientListOptions) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if opts.tag != "" {
		tag, err := resolveTag(store, opts.tag)
		if err != nil {
			return err
		}
		opts.filter.TagID = tag.ID
	}
	clients, err := store.Clients().List()
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	matched := query.FilterClients(clients, opts.filter)

	perPage := opts.perPage
	if opts.all {
		perPage = max(len(matched), 1)
	}
	page := query.Paginate(matched, opts.page, perPage)

	if a.flags.jsonMode {
		return a.printJSON(clientPage{
			Page:       page.Page,
			PerPage:    page.PerPage,
			TotalPages: page.TotalPages,
			Total:      page.Total,
			Clients:    page.Items,
		})
	}
	if page.Total == 0 {
		fmt.Fprintln(a.stdout, "No clients found.")
		return nil
	}
	names, err := tagNames(store)
	if err != nil {
		return err
	}
	rows := make([][]string, len(page.Items))
	for i, c := range page.Items {
		rows[i] = []string{c.ID, c.TaxID, truncate(c.LegalName, 40), c.Email, orDash(c.Manager), orDash(joinTagNames(c.Tags, names))}
	}
	printTable(a.stdout, []string{"ID", "TAX ID", "LEGAL NAME", "EMAIL", "MANAGER", "TAGS"}, rows)
	fmt.Fprintf(a.stdout, "Page %d of %d (%d client(s))\n", page.Page, page.TotalPages, page.Total)
	return nil
}

// clientDetail is the JSON shape of client show.
type clientDetail struct {
	*types.Client
	Notes []*types.Note `json:"notas"`
	Files []fileSummary `json:"archivos"`
}

func newClientShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a client with its notes and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClientShow(args[0])
		},
	}
}

func (a *app) runClientShow(id string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	c, err := store.Clients().Get(id)
	if err != nil {
		return fmt.Errorf("client %s: %w", id, err)
	}
	notes, err := store.Notes().ListByClient(id)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	files, err := store.Files().ListByClient(id)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	if a.flags.jsonMode {
		return a.printJSON(clientDetail{Client: c, Notes: notes, Files: summarizeFiles(files)})
	}
	names, err := tagNames(store)
	if err != nil {
		return err
	}
	printFields(a.stdout, [][2]string{
		{"ID", c.ID},
		{"Tax ID", c.TaxID},
		{"Legal name", c.LegalName},
		{"Email", c.Email},
		{"Password", orDash(c.Password)},
		{"Taxpayer type", orDash(c.TaxpayerType)},
		{"Entity type", orDash(c.EntityType)},
		{"Contact", orDash(c.Contact)},
		{"Administration", orDash(c.Administration)},
		{"Billing", orDash(c.Billing)},
		{"Regime", orDash(c.Regime)},
		{"Activity", orDash(c.Activity)},
		{"Consolidation", orDash(c.Consolidation)},
		{"Manager", orDash(c.Manager)},
		{"Address", orDash(c.Address)},
		{"Tags", orDash(joinTagNames(c.Tags, names))},
		{"Created", formatTime(c.CreatedAt)},
		{"Notes", fmt.Sprint(len(notes))},
		{"Files", fmt.Sprint(len(files))},
	})
	return nil
}

func newClientAddCmd(a *app) *cobra.Command {
	var (
		c    types.Client
		tags []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a client",
		Long: `Add a client. Tax ID, legal name and email are required. Categorical
fields must hold a value from their option list (see "settings options list").

Example:
  consultora client add --tax-id 1020304 --legal-name "Acme S.A." --email info@acme.bo
  consultora client add --tax-id 55 --legal-name Beta --email b@beta.bo --regime General --tag Urgente`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClientAdd(&c, tags)
		},
	}
	bindClientFlags(cmd, &c)
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag ID or name (repeatable)")
	return cmd
}

func (a *app) runClientAdd(c *types.Client, tagRefs []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	for _, f := range clientFields {
		*f.field(c) = strings.TrimSpace(*f.field(c))
	}
	if err := a.checkClientOptions(store, c); err != nil {
		return err
	}
	for _, ref := range tagRefs {
		tag, err := resolveTag(store, ref)
		if err != nil {
			return err
		}
		c.AddTag(tag.ID)
	}
	id, err := store.Clients().Save(c)
	if err != nil {
		return fmt.Errorf("add client: %w", err)
	}
	return a.reportClient(store, id, "Added")
}

func newClientUpdateCmd(a *app) *cobra.Command {
	var c types.Client
	cmd := &cobra.Command{
		Use:   "update <client-id>",
		Short: "Update fields of a client",
		Long: `Update a client. Only the flags given are changed.

Example:
  consultora client update 0192f3c4-... --email nuevo@acme.bo --manager Administrador`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClientUpdate(cmd, args[0], &c)
		},
	}
	bindClientFlags(cmd, &c)
	return cmd
}

func (a *app) runClientUpdate(cmd *cobra.Command, id string, changes *types.Client) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	c, err := store.Clients().Get(id)
	if err != nil {
		return fmt.Errorf("client %s: %w", id, err)
	}
	applyChangedFields(cmd, c, changes)
	if err := a.checkClientOptions(store, c); err != nil {
		return err
	}
	if _, err := store.Clients().Save(c); err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return a.reportClient(store, c.ID, "Updated")
}

func (a *app) checkClientOptions(store types.Store, c *types.Client) error {
	lists, err := store.Settings().OptionLists()
	if err != nil {
		return fmt.Errorf("read option lists: %w", err)
	}
	return checkOptionValues(c, lists)
}

func (a *app) reportClient(store types.Store, id, verb string) error {
	if a.flags.jsonMode {
		c, err := store.Clients().Get(id)
		if err != nil {
			return err
		}
		return a.printJSON(c)
	}
	fmt.Fprintf(a.stdout, "%s client %s\n", verb, id)
	return nil
}

func newClientDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <client-id>",
		Short: "Delete a client with its notes and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireYes(yes, "delete a client and its notes and files"); err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if err := store.Clients().Delete(args[0]); err != nil {
				return fmt.Errorf("delete client %s: %w", args[0], err)
			}
			fmt.Fprintf(a.stdout, "Deleted client %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

func newClientTagCmd(a *app, add bool) *cobra.Command {
	use, short := "tag", "Assign a tag to a client"
	if !add {
		use, short = "untag", "Remove a tag from a client"
	}
	return &cobra.Command{
		Use:   use + " <client-id> <tag>",
		Short: short,
		Long:  short + ". The tag may be given by ID or by name.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClientTag(args[0], args[1], add)
		},
	}
}

func (a *app) runClientTag(clientID, tagRef string, add bool) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	c, err := store.Clients().Get(clientID)
	if err != nil {
		return fmt.Errorf("client %s: %w", clientID, err)
	}
	tag, err := resolveTag(store, tagRef)
	if err != nil {
		return err
	}
	var changed bool
	if add {
		changed = c.AddTag(tag.ID)
	} else {
		changed = c.RemoveTag(tag.ID)
	}
	if changed {
		if _, err := store.Clients().Save(c); err != nil {
			return fmt.Errorf("save client: %w", err)
		}
	}
	if a.flags.jsonMode {
		return a.printJSON(c)
	}
	switch {
	case !changed && add:
		fmt.Fprintf(a.stdout, "Client %s already tagged %s\n", c.ID, tag.Name)
	case !changed:
		fmt.Fprintf(a.stdout, "Client %s is not tagged %s\n", c.ID, tag.Name)
	case add:
		fmt.Fprintf(a.stdout, "Tagged client %s with %s\n", c.ID, tag.Name)
	default:
		fmt.Fprintf(a.stdout, "Removed tag %s from client %s\n", tag.Name, c.ID)
	}
	return nil
}

// resolveTag finds a tag by ID, falling back to a case-insensitive name match.
func resolveTag(store types.Store, ref string) (*types.Tag, error) {
	tag, err := store.Tags().Get(ref)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, types.ErrNotFound) && !errors.Is(err, types.ErrInvalidID) {
		return nil, fmt.Errorf("tag %s: %w", ref, err)
	}
	tags, err := store.Tags().List()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(ref))
	var found []*types.Tag
	for _, t := range tags {
		if fold.String(t.Name) == want {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("tag %q: %w", ref, types.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, usageErrorf("tag name %q is ambiguous, use its ID", ref)
	}
}

func tagNames(store types.Store) (map[string]string, error) {
	tags, err := store.Tags().List()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	names := make(map[string]string, len(tags))
	for _, t := range tags {
		names[t.ID] = t.Name
	}
	return names, nil
}

func joinTagNames(ids []string, names map[string]string) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	return joinNames(out)
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}

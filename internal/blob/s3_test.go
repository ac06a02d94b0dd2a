package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the path-style object and ListObjectsV2 requests S3 issues.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	data, ok := f.objects[key]
	switch req.Method {
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		f.objects[key] = body
		return response(http.StatusOK, "", http.Header{"Etag": {`"etag"`}}), nil
	case http.MethodHead:
		if !ok {
			return response(http.StatusNotFound, "", nil), nil
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"Content-Length": {fmt.Sprint(len(data))},
				"Last-Modified":  {modified},
			},
			Body:          io.NopCloser(bytes.NewReader(nil)),
			ContentLength: int64(len(data)),
		}, nil
	case http.MethodGet:
		if !ok {
			return response(http.StatusNotFound,
				`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return response(http.StatusOK, string(data), http.Header{"Last-Modified": {modified}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return response(http.StatusNoContent, "", nil), nil
	}
	return response(http.StatusMethodNotAllowed, "", nil), nil
}

// isolateAWS keeps the host's AWS settings out of config.LoadDefaultConfig.
// A CA bundle from the environment cannot be applied to the fake transport.
func isolateAWS(t *testing.T) {
	t.Helper()
	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	t.Setenv("AWS_CA_BUNDLE", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_DEFAULT_PROFILE", "")
	t.Setenv("AWS_CONFIG_FILE", empty)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", empty)
	t.Setenv("AWS_ENDPOINT_URL", "")
	t.Setenv("AWS_ENDPOINT_URL_S3", "")
}

func TestS3(t *testing.T) {
	isolateAWS(t)
	fake := &fakeS3{objects: make(map[string][]byte)}
	s, err := NewS3(context.Background(),
		S3Config{Bucket: "consultora", Endpoint: "https://s3.test.local", PathStyle: true},
		config.WithSharedConfigFiles([]string{}),
		config.WithSharedCredentialsFiles([]string{}),
		config.WithHTTPClient(&http.Client{Transport: fake}),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
		config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		config.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	)
	require.NoError(t, err)
	assert.Equal(t, DriverS3, s.Driver())
	exerciseStore(t, s)
}

func TestS3IgnoresHostCABundle(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(bundle, []byte("not a certificate"), 0o600))
	t.Setenv("AWS_CA_BUNDLE", bundle)
	isolateAWS(t)

	_, err := NewS3(context.Background(),
		S3Config{Bucket: "consultora", Endpoint: "https://s3.test.local", PathStyle: true},
		config.WithHTTPClient(&http.Client{Transport: &fakeS3{objects: make(map[string][]byte)}}),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
	)
	require.NoError(t, err)
}

// Package types defines the record types, the Store and table interfaces,
// and the standard errors of the consultora records store.
//
// Records keep the JSON field names of the original browser exports
// (nitCurCi, razonSocial, clienteId, ...) so backup documents produced by
// earlier versions still load.
package types

// Package internaldefs holds the shared metric naming and bucket tables
// used by the Prometheus and OTel exporters. It is internal plumbing for
// the export packages and carries no stability guarantee.
package internaldefs

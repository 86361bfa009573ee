package contract

import "context"

type DNSRecord struct {
	ID    string
	Name  string
	Type  string
	Value string
	TTL   int
}

// RecordLister is the read-only part of a DNS hosting API.
type RecordLister interface {
	Name() string
	GetRecordsByTypes(ctx context.Context, domain, recordType string) ([]DNSRecord, error)
}

// GlueResolver finds the addresses of an in-bailiwick nameserver host of zone.
type GlueResolver interface {
	LookupAddresses(ctx context.Context, host, zone string) ([]string, error)
}

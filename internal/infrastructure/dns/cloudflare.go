package dns

import (
	"context"

	"github.com/cloudflare/cloudflare-go/v2"
	"github.com/cloudflare/cloudflare-go/v2/dns"
	"github.com/cloudflare/cloudflare-go/v2/option"
	"github.com/cloudflare/cloudflare-go/v2/zones"

	domainerr "github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

type CloudflareLister struct {
	client    *cloudflare.Client
	accountID string
}

func NewCloudflareLister(apiToken string, accountID string) (RecordLister, error) {
	client := cloudflare.NewClient(
		option.WithAPIToken(apiToken),
	)
	return &CloudflareLister{client: client, accountID: accountID}, nil
}

func (p *CloudflareLister) Name() string {
	return "cloudflare"
}

func (p *CloudflareLister) getZoneID(ctx context.Context, domainName string) (string, error) {
	params := zones.ZoneListParams{
		Name: cloudflare.F(domainName),
	}
	if p.accountID != "" {
		params.Account = cloudflare.F(zones.ZoneListParamsAccount{
			ID: cloudflare.F(p.accountID),
		})
	}
	resp, err := p.client.Zones.List(ctx, params)
	if err != nil {
		return "", domainerr.WrapOp("list zones", err)
	}
	if len(resp.Result) == 0 {
		return "", ErrDomainNotFound
	}
	return resp.Result[0].ID, nil
}

// GetRecordsByTypes returns the zone's records of one type. Cloudflare reports
// record names fully qualified.
func (p *CloudflareLister) GetRecordsByTypes(ctx context.Context, domainName string, recordType string) ([]DNSRecord, error) {
	logger.Debug("listing DNS records", "provider", "cloudflare", "domain", domainName, "type", recordType)

	zoneID, err := p.getZoneID(ctx, domainName)
	if err != nil {
		return nil, err
	}

	var records []DNSRecord
	pager := p.client.DNS.Records.ListAutoPaging(ctx, dns.RecordListParams{
		ZoneID: cloudflare.F(zoneID),
		Type:   cloudflare.F(dns.RecordListParamsType(recordType)),
	})
	for pager.Next() {
		record := pager.Current()
		content := ""
		if str, ok := record.Content.(string); ok {
			content = str
		}
		records = append(records, DNSRecord{
			ID:    record.ID,
			Name:  record.Name,
			Type:  string(record.Type),
			Value: content,
			TTL:   int(record.TTL),
		})
	}
	if err := pager.Err(); err != nil {
		logger.Error("failed to list records", "domain", domainName, "error", err)
		return nil, domainerr.WrapOp("list records", err)
	}
	return records, nil
}

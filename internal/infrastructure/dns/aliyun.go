package dns

import (
	"context"

	alidns "github.com/alibabacloud-go/alidns-20150109/v4/client"
	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	"github.com/alibabacloud-go/tea/tea"

	"github.com/lite-lake/infra-regsync/internal/constants"
	domainerr "github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

type AliyunLister struct {
	client *alidns.Client
}

func NewAliyunLister(accessKeyID, accessKeySecret string) (RecordLister, error) {
	config := &openapi.Config{
		AccessKeyId:     tea.String(accessKeyID),
		AccessKeySecret: tea.String(accessKeySecret),
	}
	config.Endpoint = tea.String("dns.aliyuncs.com")
	client, err := alidns.NewClient(config)
	if err != nil {
		return nil, domainerr.WrapOp("create aliyun dns client", err)
	}
	return &AliyunLister{client: client}, nil
}

func (p *AliyunLister) Name() string {
	return "aliyun"
}

// GetRecordsByTypes returns the zone's records of one type. Names are the
// host record (RR) relative to the zone, "@" for the apex.
func (p *AliyunLister) GetRecordsByTypes(ctx context.Context, domainName string, recordType string) ([]DNSRecord, error) {
	logger.Debug("listing DNS records", "provider", "aliyun", "domain", domainName, "type", recordType)

	req := &alidns.DescribeDomainRecordsRequest{
		DomainName: tea.String(domainName),
		Type:       tea.String(recordType),
	}
	resp, err := p.client.DescribeDomainRecords(req)
	if err != nil {
		return nil, domainerr.WrapOp("list records", err)
	}

	var records []DNSRecord
	if resp.Body != nil && resp.Body.DomainRecords != nil {
		for _, r := range resp.Body.DomainRecords.Record {
			ttl := constants.DefaultDNSRecordTTL
			if r.TTL != nil {
				ttl = int(*r.TTL)
			}
			records = append(records, DNSRecord{
				ID:    tea.StringValue(r.RecordId),
				Name:  tea.StringValue(r.RR),
				Type:  tea.StringValue(r.Type),
				Value: tea.StringValue(r.Value),
				TTL:   ttl,
			})
		}
	}
	return records, nil
}

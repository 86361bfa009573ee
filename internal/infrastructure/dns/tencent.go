package dns

import (
	"context"
	"errors"
	"strconv"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"

	"github.com/lite-lake/infra-regsync/internal/constants"
	domainerr "github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

// DNSPod answers an empty record list with this error code.
const tencentNoRecords = "ResourceNotFound.NoDataOfRecord"

type TencentLister struct {
	client *dnspod.Client
}

func NewTencentLister(secretID, secretKey string) (RecordLister, error) {
	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "dnspod.tencentcloudapi.com"
	client, err := dnspod.NewClient(credential, "", cpf)
	if err != nil {
		return nil, domainerr.WrapOp("create tencent dns client", err)
	}
	return &TencentLister{client: client}, nil
}

func (p *TencentLister) Name() string {
	return "tencent"
}

// GetRecordsByTypes returns the zone's records of one type, named relative to
// the zone.
func (p *TencentLister) GetRecordsByTypes(ctx context.Context, domain string, recordType string) ([]DNSRecord, error) {
	logger.Debug("listing DNS records", "provider", "tencent", "domain", domain, "type", recordType)

	req := dnspod.NewDescribeRecordListRequest()
	req.Domain = common.StringPtr(domain)
	req.RecordType = common.StringPtr(recordType)

	resp, err := p.client.DescribeRecordListWithContext(ctx, req)
	if err != nil {
		var sdkErr *sdkerrors.TencentCloudSDKError
		if errors.As(err, &sdkErr) && sdkErr.GetCode() == tencentNoRecords {
			return nil, nil
		}
		return nil, domainerr.WrapOp("list records", err)
	}

	var records []DNSRecord
	if resp.Response != nil && resp.Response.RecordList != nil {
		for _, r := range resp.Response.RecordList {
			if r.RecordId == nil || r.Name == nil || r.Value == nil {
				continue
			}
			ttl := constants.DefaultDNSRecordTTL
			if r.TTL != nil {
				ttl = int(*r.TTL)
			}
			records = append(records, DNSRecord{
				ID:    strconv.FormatUint(*r.RecordId, 10),
				Name:  *r.Name,
				Type:  recordType,
				Value: *r.Value,
				TTL:   ttl,
			})
		}
	}
	return records, nil
}

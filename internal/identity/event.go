package identity

import (
	"encoding/json"
	"fmt"
)

// イベント種別。これ以外のイベントはログのみで無視する（200応答）。
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event はIdPから配送されるWebhookイベント。
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseEvent はWebhookペイロードをパースする。
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}
	if evt.Type == "" {
		return nil, fmt.Errorf("webhook event has no type")
	}
	return &evt, nil
}

// userPayload はuser.*イベントのDataフィールド。
// IdPのペイロード形状に合わせる。欠落フィールドは空文字として扱う。
type userPayload struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	ImageURL              string `json:"image_url"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PhoneNumbers []struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"phone_numbers"`
}

// primaryEmail は主メールアドレスを解決する。
// primary_email_address_idに対応するエントリを優先し、
// 見つからない場合は先頭のアドレスを返す。
func (p *userPayload) primaryEmail() string {
	for _, e := range p.EmailAddresses {
		if e.ID == p.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(p.EmailAddresses) > 0 {
		return p.EmailAddresses[0].EmailAddress
	}
	return ""
}

// firstPhone は先頭の電話番号を返す。未登録の場合は空文字。
func (p *userPayload) firstPhone() string {
	if len(p.PhoneNumbers) > 0 {
		return p.PhoneNumbers[0].PhoneNumber
	}
	return ""
}

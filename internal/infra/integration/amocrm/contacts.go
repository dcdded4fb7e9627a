package amocrm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// FindContactByEmail returns the contact whose email matches exactly, the
// first search hit otherwise, or nil.
func (c *Client) FindContactByEmail(ctx context.Context, email string) (*Contact, error) {
	contacts, err := c.searchContacts(ctx, email)
	if err != nil || len(contacts) == 0 {
		return nil, err
	}
	for _, contact := range contacts {
		for _, e := range contact.Emails {
			if strings.EqualFold(strings.TrimSpace(e), email) {
				return contact, nil
			}
		}
	}
	return contacts[0], nil
}

// FindContactByPhone returns the contact whose phone digits match, or nil.
func (c *Client) FindContactByPhone(ctx context.Context, phone string) (*Contact, error) {
	digits := phoneDigits(phone)
	if digits == "" {
		return nil, nil
	}
	contacts, err := c.searchContacts(ctx, digits)
	if err != nil {
		return nil, err
	}
	for _, contact := range contacts {
		for _, p := range contact.Phones {
			if samePhone(phoneDigits(p), digits) {
				return contact, nil
			}
		}
	}
	return nil, nil
}

func (c *Client) CreateContact(ctx context.Context, email, name, phone string) (*Contact, error) {
	fields := []CustomFieldValue{{
		FieldCode: "EMAIL",
		Values:    []FieldValue{{Value: email, EnumCode: "WORK"}},
	}}
	if phone != "" {
		fields = append(fields, CustomFieldValue{
			FieldCode: "PHONE",
			Values:    []FieldValue{{Value: phone, EnumCode: "WORK"}},
		})
	}

	var result contactsResponse
	body := []contactPayload{{Name: name, CustomFieldsValues: fields}}
	if err := c.do(ctx, http.MethodPost, "/contacts", body, &result); err != nil {
		return nil, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return nil, errEmptyCreateResponse
	}

	contact := &Contact{ID: result.Embedded.Contacts[0].ID, Name: name, Emails: []string{email}}
	if phone != "" {
		contact.Phones = []string{phone}
	}
	c.logger.Info("amocrm contact created", "contact_id", contact.ID, "email", email)
	return contact, nil
}

func (c *Client) searchContacts(ctx context.Context, query string) ([]*Contact, error) {
	var result contactsResponse
	if err := c.do(ctx, http.MethodGet, "/contacts?query="+url.QueryEscape(query), nil, &result); err != nil {
		return nil, err
	}
	contacts := make([]*Contact, 0, len(result.Embedded.Contacts))
	for _, payload := range result.Embedded.Contacts {
		contacts = append(contacts, payload.toContact())
	}
	return contacts, nil
}

func phoneDigits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// samePhone treats the Russian trunk prefixes 7 and 8 as equal.
func samePhone(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) == 11 && len(b) == 11 && (a[0] == '7' || a[0] == '8') && (b[0] == '7' || b[0] == '8') {
		return a[1:] == b[1:]
	}
	return false
}

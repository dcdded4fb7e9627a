package amocrm

// Contact is the subset of an amoCRM contact the sync reads.
type Contact struct {
	ID     int
	Name   string
	Emails []string
	Phones []string
}

// Lead is the subset of an amoCRM lead the sync reads.
type Lead struct {
	ID                 int                `json:"id"`
	Name               string             `json:"name"`
	Price              int64              `json:"price"`
	StatusID           int                `json:"status_id"`
	PipelineID         int                `json:"pipeline_id"`
	CustomFieldsValues []CustomFieldValue `json:"custom_fields_values"`
}

// CustomFieldValue is one entry of custom_fields_values. Contacts address
// system fields by FieldCode, leads use FieldID.
type CustomFieldValue struct {
	FieldID   int          `json:"field_id,omitempty"`
	FieldCode string       `json:"field_code,omitempty"`
	Values    []FieldValue `json:"values"`
}

type FieldValue struct {
	Value    any    `json:"value,omitempty"`
	EnumID   int    `json:"enum_id,omitempty"`
	EnumCode string `json:"enum_code,omitempty"`
}

type contactPayload struct {
	ID                 int                `json:"id,omitempty"`
	Name               string             `json:"name,omitempty"`
	CustomFieldsValues []CustomFieldValue `json:"custom_fields_values,omitempty"`
}

type entityRef struct {
	ID int `json:"id"`
}

type tag struct {
	Name string `json:"name"`
}

type leadEmbedded struct {
	Contacts []entityRef `json:"contacts,omitempty"`
	Tags     []tag       `json:"tags,omitempty"`
}

type leadPayload struct {
	Name               string             `json:"name,omitempty"`
	Price              *int64             `json:"price,omitempty"`
	PipelineID         int                `json:"pipeline_id,omitempty"`
	StatusID           int                `json:"status_id,omitempty"`
	CustomFieldsValues []CustomFieldValue `json:"custom_fields_values,omitempty"`
	Embedded           *leadEmbedded      `json:"_embedded,omitempty"`
}

type notePayload struct {
	NoteType string     `json:"note_type"`
	Params   noteParams `json:"params"`
}

type noteParams struct {
	Text string `json:"text"`
}

type contactsResponse struct {
	Embedded struct {
		Contacts []contactPayload `json:"contacts"`
	} `json:"_embedded"`
}

type leadsResponse struct {
	Embedded struct {
		Leads []Lead `json:"leads"`
	} `json:"_embedded"`
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

type tokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c contactPayload) toContact() *Contact {
	contact := &Contact{ID: c.ID, Name: c.Name}
	for _, field := range c.CustomFieldsValues {
		for _, v := range field.Values {
			s, ok := v.Value.(string)
			if !ok || s == "" {
				continue
			}
			switch field.FieldCode {
			case "EMAIL":
				contact.Emails = append(contact.Emails, s)
			case "PHONE":
				contact.Phones = append(contact.Phones, s)
			}
		}
	}
	return contact
}

// textValue returns the first value of a custom field rendered as text.
func (l Lead) textValue(fieldID int) (string, bool) {
	for _, field := range l.CustomFieldsValues {
		if field.FieldID != fieldID || len(field.Values) == 0 {
			continue
		}
		switch v := field.Values[0].Value.(type) {
		case string:
			return v, true
		case float64:
			return formatNumber(v), true
		}
	}
	return "", false
}

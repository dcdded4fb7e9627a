package amocrm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/naming"
)

const radarioTag = "radario"

// FindLeadByOrderID searches leads by order id. amoCRM search is fuzzy, so a
// hit counts only if its order reference field equals the id or its name
// ends with "#<id>".
func (c *Client) FindLeadByOrderID(ctx context.Context, orderID string) (*Lead, error) {
	var result leadsResponse
	if err := c.do(ctx, http.MethodGet, "/leads?query="+url.QueryEscape(orderID), nil, &result); err != nil {
		return nil, err
	}

	for i := range result.Embedded.Leads {
		lead := &result.Embedded.Leads[i]
		if c.matchesOrder(lead, orderID) {
			return lead, nil
		}
	}
	if n := len(result.Embedded.Leads); n > 0 {
		c.logger.Warn("amocrm lead search returned no verified match", "order_id", orderID, "hits", n)
	}
	return nil, nil
}

func (c *Client) matchesOrder(lead *Lead, orderID string) bool {
	if ref, ok := lead.textValue(c.schema.FieldOrderRef); ok && ref == orderID {
		return true
	}
	if number, ok := lead.textValue(c.schema.FieldOrderNumber); ok && number == orderID {
		return true
	}
	return strings.HasSuffix(strings.TrimSpace(lead.Name), "#"+orderID)
}

// CreateLead opens a lead for the order linked to the contact and attaches a
// note with the full order. Refunded orders start in the lost stage. A failed
// note is logged and does not fail the call.
func (c *Client) CreateLead(ctx context.Context, contactID int, order *entity.Order) (*Lead, error) {
	statusID := c.schema.StatusNewID
	if order.IsRefunded() {
		statusID = c.schema.StatusLostID
	}
	price := order.WholeAmount()

	payload := leadPayload{
		Name:               naming.BuildLeadTitle(order.EventTitle, order.OrderID),
		Price:              &price,
		PipelineID:         c.schema.PipelineID,
		StatusID:           statusID,
		CustomFieldsValues: c.schema.leadFields(order),
		Embedded: &leadEmbedded{
			Contacts: []entityRef{{ID: contactID}},
			Tags:     []tag{{Name: radarioTag}},
		},
	}

	var result leadsResponse
	if err := c.do(ctx, http.MethodPost, "/leads", []leadPayload{payload}, &result); err != nil {
		return nil, err
	}
	if len(result.Embedded.Leads) == 0 {
		return nil, errEmptyCreateResponse
	}

	lead := &Lead{
		ID:                 result.Embedded.Leads[0].ID,
		Name:               payload.Name,
		Price:              price,
		StatusID:           statusID,
		PipelineID:         c.schema.PipelineID,
		CustomFieldsValues: payload.CustomFieldsValues,
	}
	c.logger.Info("amocrm lead created", "lead_id", lead.ID, "contact_id", contactID, "order_id", order.OrderID)

	if err := c.AddNote(ctx, lead.ID, naming.BuildLeadNote(order)); err != nil {
		c.logger.Warn("amocrm lead note failed", "lead_id", lead.ID, "error", err)
	}
	return lead, nil
}

// UpdateLead rewrites price and custom fields. targetStage moves the lead when
// non-nil.
func (c *Client) UpdateLead(ctx context.Context, leadID int, order *entity.Order, targetStage *int) (*Lead, error) {
	price := order.WholeAmount()
	payload := leadPayload{
		Price:              &price,
		CustomFieldsValues: c.schema.leadFields(order),
	}
	if targetStage != nil {
		payload.PipelineID = c.schema.PipelineID
		payload.StatusID = *targetStage
	}

	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/leads/%d", leadID), payload, nil); err != nil {
		return nil, err
	}
	c.logger.Info("amocrm lead updated", "lead_id", leadID, "order_id", order.OrderID, "payment_state", order.PaymentState)
	return &Lead{
		ID:                 leadID,
		Price:              price,
		StatusID:           payload.StatusID,
		PipelineID:         payload.PipelineID,
		CustomFieldsValues: payload.CustomFieldsValues,
	}, nil
}

// UpdateLeadForRefund moves the lead to the lost stage and stamps the refund.
func (c *Client) UpdateLeadForRefund(ctx context.Context, leadID int, order *entity.Order) (*Lead, error) {
	payload := leadPayload{
		PipelineID:         c.schema.PipelineID,
		StatusID:           c.schema.StatusLostID,
		CustomFieldsValues: c.schema.paymentFields(order),
	}

	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/leads/%d", leadID), payload, nil); err != nil {
		return nil, err
	}
	c.logger.Info("amocrm lead refunded", "lead_id", leadID, "order_id", order.OrderID)
	return &Lead{
		ID:                 leadID,
		StatusID:           payload.StatusID,
		PipelineID:         payload.PipelineID,
		CustomFieldsValues: payload.CustomFieldsValues,
	}, nil
}

func (c *Client) AddNote(ctx context.Context, leadID int, text string) error {
	body := []notePayload{{NoteType: "common", Params: noteParams{Text: text}}}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/leads/%d/notes", leadID), body, nil)
}

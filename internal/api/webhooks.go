package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// privacyPayload is the body Shopify posts for the mandatory GDPR topics.
type privacyPayload struct {
	ShopDomain string `json:"shop_domain"`
	Customer   struct {
		ID    json.Number `json:"id"`
		Email string      `json:"email"`
	} `json:"customer"`
}

// POST /api/webhooks
// Handles the mandatory privacy topics. The body signature is verified with
// the app secret before anything is parsed.
func (rt *Router) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, "unreadable body", http.StatusBadRequest)
		return
	}
	if !rt.verifyWebhookHMAC(body, r.Header.Get("X-Shopify-Hmac-Sha256")) {
		respondError(w, "invalid webhook signature", http.StatusUnauthorized)
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	shop := r.Header.Get("X-Shopify-Shop-Domain")
	var payload privacyPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			respondError(w, "invalid webhook payload", http.StatusBadRequest)
			return
		}
	}
	if shop == "" {
		shop = payload.ShopDomain
	}
	log := logrus.WithFields(logrus.Fields{"topic": topic, "shop": shop})

	switch topic {
	case "shop/redact":
		if err := rt.store.DeleteStore(r.Context(), shop); err != nil {
			respondError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		removed, err := rt.store.DeleteResponsesByShop(r.Context(), shop)
		if err != nil {
			respondError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.WithField("responses_removed", removed).Info("shop data redacted")
	case "customers/redact":
		removed, err := rt.store.DeleteCustomerData(r.Context(), shop, payload.Customer.ID.String())
		if err != nil {
			respondError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.WithField("records_removed", removed).Info("customer data redacted")
	case "customers/data_request":
		// Nothing stored beyond responses; acknowledged for manual follow-up.
		log.Info("customer data request received")
	default:
		log.Warn("unhandled webhook topic")
	}
	respond(w, map[string]interface{}{"ok": true}, http.StatusOK)
}

func (rt *Router) verifyWebhookHMAC(body []byte, header string) bool {
	if rt.opts.WebhookSecret == "" {
		logrus.Warn("webhook signature verification disabled: no secret configured")
		return true
	}
	mac := hmac.New(sha256.New, []byte(rt.opts.WebhookSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

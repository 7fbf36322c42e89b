package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gatekeep/internal/common"
	"gatekeep/pkg/api"
	"gatekeep/pkg/event"
)

const timestampMaxAge = 300 // seconds

// Webhook receives signed push notifications. Only push events instantiate a
// run; any other event type is acknowledged and ignored.
func (h *Handler) Webhook(c *gin.Context) {
	timestampStr := c.GetHeader("X-Webhook-Timestamp")
	signature := c.GetHeader("X-Webhook-Signature")

	if timestampStr == "" || signature == "" {
		common.Error(c, common.NewErrNo(common.SignatureInvalid))
		return
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		common.Error(c, common.NewErrNo(common.SignatureInvalid))
		return
	}
	now := time.Now().Unix()
	if now-timestamp > timestampMaxAge || timestamp > now {
		common.Error(c, common.NewErrNo(common.SignatureInvalid))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		common.Error(c, common.NewErrNo(common.RequestInvalid))
		return
	}
	if !h.verifySignature(timestampStr, body, signature) {
		common.Error(c, common.NewErrNo(common.SignatureInvalid))
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var payload api.PushPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		common.Error(c, common.NewErrNo(common.RequestInvalid))
		return
	}

	if payload.Type != event.TypePush {
		// Recognized by the surrounding environment, not by this gate.
		common.Success(c, gin.H{"ignored": payload.Type})
		return
	}
	if payload.Revision == "" || payload.Ref == "" {
		common.Error(c, common.NewErrNo(common.RequestInvalid))
		return
	}

	runUUID, err := h.enqueueRun(c, event.Push{
		Type:     payload.Type,
		Revision: payload.Revision,
		Ref:      payload.Ref,
	}, event.TriggerWebhook)
	if err != nil {
		common.Error(c, err)
		return
	}
	common.Success(c, api.TriggerResponse{RunUUID: runUUID})
}

func (h *Handler) verifySignature(timestamp string, body []byte, signature string) bool {
	signatureBase := fmt.Sprintf("%s.%s.%s", timestamp, string(body), h.secret)
	hash := sha256.Sum256([]byte(signatureBase))
	computed := hex.EncodeToString(hash[:])
	return hmac.Equal([]byte(computed), []byte(signature))
}

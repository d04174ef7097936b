package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/metrics"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/notify"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
)

func (a *api) webhook(c *gin.Context) {
	var n omnikassa.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}

	outcome, err := a.cfg.Notifications.Handle(c.Request.Context(), n)
	switch {
	case errors.Is(err, notify.ErrSignatureMismatch), errors.Is(err, notify.ErrNotificationExpired):
		metrics.Notifications.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_notification"})
	case err != nil:
		log.Printf("[webhook] notification poi=%d not dispatched: %v", n.PoiID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch_failed"})
	case outcome == notify.OutcomeAccepted:
		metrics.Notifications.WithLabelValues(outcome.String()).Inc()
		c.JSON(http.StatusAccepted, gin.H{"status": outcome.String()})
	default:
		metrics.Notifications.WithLabelValues(outcome.String()).Inc()
		c.JSON(http.StatusOK, gin.H{"status": outcome.String()})
	}
}

package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "giveaway-bot/internal/common/errors"
	mw "giveaway-bot/internal/common/middleware"
	"giveaway-bot/internal/domain/giveaway"
	giveawaysvc "giveaway-bot/internal/service/giveaway"
	"giveaway-bot/internal/utils/duration"
)

type giveawayHandlers struct {
	service GiveawayService
}

// giveawayResponse is the public view of a giveaway. Participant ids are not
// exposed; Joined tells the caller whether they participate.
type giveawayResponse struct {
	ID              string    `json:"id"`
	Item            string    `json:"item"`
	Title           string    `json:"title"`
	Quantity        int       `json:"quantity"`
	Winners         int       `json:"winners"`
	Duration        string    `json:"duration"`
	EndsAt          time.Time `json:"ends_at"`
	Participants    int       `json:"participants"`
	MinParticipants int       `json:"min_participants"`
	Joined          bool      `json:"joined"`
}

func toResponse(g giveaway.Giveaway, userID string) giveawayResponse {
	return giveawayResponse{
		ID:              g.ID,
		Item:            g.Item,
		Title:           g.Title(),
		Quantity:        g.Quantity,
		Winners:         g.WinnerCount,
		Duration:        duration.Format(g.DurationMs),
		EndsAt:          g.EndTime().UTC(),
		Participants:    len(g.Participants),
		MinParticipants: g.MinParticipants,
		Joined:          userID != "" && g.HasParticipant(userID),
	}
}

func currentUser(c *gin.Context) string {
	if id, ok := mw.UserID(c); ok {
		return strconv.FormatInt(id, 10)
	}
	return ""
}

func (h *giveawayHandlers) listActive(c *gin.Context) {
	userID := currentUser(c)
	active := h.service.Active()
	out := make([]giveawayResponse, 0, len(active))
	for _, g := range active {
		if !g.Published() {
			continue
		}
		out = append(out, toResponse(g, userID))
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": out, "total": len(out)})
}

func (h *giveawayHandlers) getByID(c *gin.Context) {
	g, err := h.service.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toResponse(g, currentUser(c)))
}

func (h *giveawayHandlers) join(c *gin.Context) {
	userID := currentUser(c)
	if userID == "" {
		_ = c.Error(apperrors.NewUnauthorizedError("Telegram init data required"))
		return
	}
	g, err := h.service.Join(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toResponse(g, userID))
}

// createRequest is the admin API body; durations accept the same text as the
// bot command ("1h 30m") or raw milliseconds.
type createRequest struct {
	Item            string `json:"item"`
	Quantity        int    `json:"quantity"`
	Winners         int    `json:"winners"`
	Duration        string `json:"duration"`
	DurationMs      int64  `json:"duration_ms"`
	MinParticipants int    `json:"min_participants"`
	ChannelID       string `json:"channel_id"`
}

func (h *giveawayHandlers) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid JSON body"))
		return
	}

	ms := req.DurationMs
	if req.Duration != "" {
		ms = duration.Parse(req.Duration)
	}

	g, err := h.service.Create(c.Request.Context(), giveawaysvc.CreateInput{
		Item:            req.Item,
		Quantity:        req.Quantity,
		WinnerCount:     req.Winners,
		DurationMs:      ms,
		MinParticipants: req.MinParticipants,
		ChannelID:       req.ChannelID,
		CreatedBy:       currentUser(c),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(g, ""))
}

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
	"github.com/noah-isme/padel-waitlist-api/pkg/whatsapp"
)

// Dispatch failure reasons recorded on DispatchError and NotificationRecord.
const (
	DispatchReasonNoChannel          = "no_channel"
	DispatchReasonInvalidDestination = "invalid_destination"
	DispatchReasonProviderError      = "provider_error"
	DispatchReasonNetworkError       = "network_error"
	DispatchReasonTemplate           = "template_error"
)

// ChannelDirectory resolves the broadcast channel configured for a club.
// An empty string with a nil error means the club has no channel.
type ChannelDirectory interface {
	BroadcastChannel(ctx context.Context, clubID string) (string, error)
}

// channelForgetter is implemented by directories that cache their answers.
type channelForgetter interface {
	Forget(ctx context.Context, clubID string) error
}

type notificationRepository interface {
	Create(ctx context.Context, record *models.NotificationRecord) error
	FindSent(ctx context.Context, token, channel string) (*models.NotificationRecord, error)
}

type messageSender interface {
	SendText(ctx context.Context, msg whatsapp.Message) (*whatsapp.SendResult, error)
}

type destinationNormalizer interface {
	Destination(raw string) (string, error)
}

// DispatchError explains why a broadcast did not go out. The token it
// advertised stays valid.
type DispatchError struct {
	Reason string
	Err    error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NotifyRequest describes one broadcast of a claim link.
type NotifyRequest struct {
	Occurrence     models.OccurrenceKey
	Token          string
	ClaimURL       string
	AvailableSpots int
	ExpiresAt      time.Time
	Channel        string
	Force          bool
}

// NotificationConfig holds dispatcher defaults.
type NotificationConfig struct {
	DefaultChannel string
}

const defaultMessageTemplate = `🎾 {{.ClubName}}: {{.Spots}} {{if eq .Spots 1}}spot{{else}}spots{{end}} just opened in {{.ClassName}}
📅 {{.Weekday}} {{.Date}} at {{.StartTime}}
⏳ Link valid until {{.ExpiresAt}}
First come, first served: {{.ClaimURL}}`

type messageData struct {
	ClubName  string
	ClassName string
	Weekday   string
	Date      string
	StartTime string
	Spots     int
	ExpiresAt string
	ClaimURL  string
}

// NotificationService broadcasts claim links to a club's WhatsApp channel.
type NotificationService struct {
	repo       notificationRepository
	classes    occurrenceReader
	directory  ChannelDirectory
	sender     messageSender
	normalizer destinationNormalizer
	tmpl       *template.Template
	cfg        NotificationConfig
	metrics    waitlistMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepository, classes occurrenceReader, directory ChannelDirectory, sender messageSender, normalizer destinationNormalizer, cfg NotificationConfig, metrics waitlistMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:       repo,
		classes:    classes,
		directory:  directory,
		sender:     sender,
		normalizer: normalizer,
		tmpl:       template.Must(template.New("claim_link").Parse(defaultMessageTemplate)),
		cfg:        cfg,
		metrics:    metricsOrNop(metrics),
		logger:     logger,
		now:        time.Now,
	}
}

// Notify broadcasts the claim link. A previously successful broadcast of the
// same token to the same channel is returned as a duplicate unless Force is set.
// On failure both the recorded result and an error wrapping *DispatchError are returned.
func (s *NotificationService) Notify(ctx context.Context, req NotifyRequest) (*models.DispatchResult, error) {
	occurrence, err := loadOccurrence(ctx, s.classes, req.Occurrence)
	if err != nil {
		return nil, err
	}

	raw := s.resolveChannel(ctx, req.Channel, occurrence.ClubID)
	if raw == "" {
		s.metrics.ObserveDispatch(DispatchReasonNoChannel)
		return &models.DispatchResult{Status: models.NotificationStatusFailed, FailureReason: DispatchReasonNoChannel}, dispatchFailure(&DispatchError{Reason: DispatchReasonNoChannel})
	}

	channel, err := s.normalizer.Destination(raw)
	if err != nil {
		if req.Channel == "" {
			s.forgetChannel(ctx, occurrence.ClubID)
		}
		return s.recordFailure(ctx, req, raw, "", &DispatchError{Reason: DispatchReasonInvalidDestination, Err: err})
	}

	if !req.Force {
		existing, err := s.repo.FindSent(ctx, req.Token, channel)
		if err == nil {
			s.metrics.ObserveDispatch("duplicate")
			return resultFromRecord(existing, true), nil
		}
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check previous notifications")
		}
	}

	body, err := s.render(occurrence, req)
	if err != nil {
		return s.recordFailure(ctx, req, channel, "", &DispatchError{Reason: DispatchReasonTemplate, Err: err})
	}

	sent, err := s.sender.SendText(ctx, whatsapp.Message{To: channel, Body: body})
	if err != nil {
		reason := DispatchReasonNetworkError
		var apiErr *whatsapp.APIError
		if errors.As(err, &apiErr) || errors.Is(err, whatsapp.ErrNotConfigured) {
			reason = DispatchReasonProviderError
		}
		return s.recordFailure(ctx, req, channel, body, &DispatchError{Reason: reason, Err: err})
	}
	if sent == nil {
		sent = &whatsapp.SendResult{}
	}

	record := &models.NotificationRecord{
		Token:   req.Token,
		Channel: channel,
		Body:    body,
		Status:  models.NotificationStatusSent,
		Forced:  req.Force,
		SentAt:  s.now().UTC(),
	}
	if sent.MessageID != "" {
		record.ProviderMessageID = &sent.MessageID
	} else {
		s.logger.Sugar().Warnw("gateway accepted broadcast without message id", "token", tokenPrefix(req.Token), "channel", channel)
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Sugar().Errorw("failed to record sent notification", "token", tokenPrefix(req.Token), "channel", channel, "error", err)
	}
	s.metrics.ObserveDispatch(string(models.NotificationStatusSent))
	s.logger.Sugar().Infow("claim link broadcast", "occurrence", req.Occurrence.String(), "token", tokenPrefix(req.Token), "channel", channel, "message_id", sent.MessageID)
	return resultFromRecord(record, false), nil
}

func (s *NotificationService) resolveChannel(ctx context.Context, requested, clubID string) string {
	if requested != "" {
		return requested
	}
	if s.directory != nil {
		channel, err := s.directory.BroadcastChannel(ctx, clubID)
		if err != nil {
			s.logger.Sugar().Warnw("channel directory lookup failed", "club_id", clubID, "error", err)
		} else if channel != "" {
			return channel
		}
	}
	return s.cfg.DefaultChannel
}

func (s *NotificationService) forgetChannel(ctx context.Context, clubID string) {
	forgetter, ok := s.directory.(channelForgetter)
	if !ok {
		return
	}
	if err := forgetter.Forget(ctx, clubID); err != nil {
		s.logger.Sugar().Warnw("failed to clear cached club channel", "club_id", clubID, "error", err)
	}
}

func (s *NotificationService) render(occurrence *models.ClassOccurrence, req NotifyRequest) (string, error) {
	data := messageData{
		ClubName:  occurrence.ClubName,
		ClassName: occurrence.Name,
		Weekday:   occurrence.Weekday().String(),
		Date:      occurrence.Date,
		StartTime: occurrence.StartTime,
		Spots:     req.AvailableSpots,
		ExpiresAt: req.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
		ClaimURL:  req.ClaimURL,
	}
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *NotificationService) recordFailure(ctx context.Context, req NotifyRequest, channel, body string, dispatchErr *DispatchError) (*models.DispatchResult, error) {
	reason := dispatchErr.Reason
	if dispatchErr.Err != nil {
		reason = fmt.Sprintf("%s: %v", dispatchErr.Reason, dispatchErr.Err)
	}
	record := &models.NotificationRecord{
		Token:         req.Token,
		Channel:       channel,
		Body:          body,
		Status:        models.NotificationStatusFailed,
		FailureReason: &reason,
		Forced:        req.Force,
		SentAt:        s.now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Sugar().Errorw("failed to record failed notification", "token", tokenPrefix(req.Token), "error", err)
	}
	s.metrics.ObserveDispatch(dispatchErr.Reason)
	s.logger.Sugar().Warnw("claim link broadcast failed", "occurrence", req.Occurrence.String(), "token", tokenPrefix(req.Token), "channel", channel, "reason", dispatchErr.Reason, "error", dispatchErr.Err)
	return resultFromRecord(record, false), dispatchFailure(dispatchErr)
}

func dispatchFailure(err *DispatchError) error {
	return appErrors.Wrap(err, appErrors.ErrDispatchFailed.Code, appErrors.ErrDispatchFailed.Status, appErrors.ErrDispatchFailed.Message)
}

func resultFromRecord(record *models.NotificationRecord, duplicate bool) *models.DispatchResult {
	result := &models.DispatchResult{
		RecordID:  record.ID,
		Channel:   record.Channel,
		Status:    record.Status,
		Duplicate: duplicate,
		SentAt:    record.SentAt,
	}
	if record.ProviderMessageID != nil {
		result.ProviderMessageID = *record.ProviderMessageID
	}
	if record.FailureReason != nil {
		result.FailureReason = *record.FailureReason
	}
	return result
}

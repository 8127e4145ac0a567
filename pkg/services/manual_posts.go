package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/telegram"
)

const (
	contentTypeManual     = "manual"
	dispatchBatchSize     = 20
	maxManualPostsPerPage = 100
)

// ManualPostService manages dashboard-authored posts.
type ManualPostService struct {
	store  ManualPostStore
	sender telegram.Sender
	logger *logger.Logger
	now    func() time.Time
}

func NewManualPostService(store ManualPostStore, sender telegram.Sender) *ManualPostService {
	return &ManualPostService{
		store:  store,
		sender: sender,
		logger: logger.New("manual-posts"),
		now:    time.Now,
	}
}

func (s *ManualPostService) List(ctx context.Context, status *string, limit, offset int32) ([]database.ManualPost, error) {
	if limit <= 0 || limit > maxManualPostsPerPage {
		limit = maxManualPostsPerPage
	}
	return s.store.ListManualPosts(ctx, status, limit, offset)
}

func (s *ManualPostService) Get(ctx context.Context, id int32) (database.ManualPost, error) {
	return s.store.GetManualPost(ctx, id)
}

// normalize validates arg and derives the status: a schedule time makes a
// post scheduled, otherwise it is a draft.
func (s *ManualPostService) normalize(arg *database.ManualPostParams) error {
	arg.Title = strings.TrimSpace(arg.Title)
	arg.Content = strings.TrimSpace(arg.Content)
	switch {
	case arg.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case arg.Content == "":
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	case len(arg.ChannelIDs) == 0:
		return fmt.Errorf("%w: at least one channel is required", ErrInvalidInput)
	}
	if arg.ImageURL != nil && strings.TrimSpace(*arg.ImageURL) == "" {
		arg.ImageURL = nil
	}

	arg.Status = database.PostStatusDraft
	if arg.ScheduledAt != nil {
		if arg.ScheduledAt.Before(s.now().Add(-time.Minute)) {
			return fmt.Errorf("%w: scheduled_at is in the past", ErrInvalidInput)
		}
		arg.Status = database.PostStatusScheduled
	}
	return nil
}

func (s *ManualPostService) Create(ctx context.Context, arg database.ManualPostParams) (database.ManualPost, error) {
	if err := s.normalize(&arg); err != nil {
		return database.ManualPost{}, err
	}
	return s.store.CreateManualPost(ctx, arg)
}

// Update edits a post that has not been sent yet.
func (s *ManualPostService) Update(ctx context.Context, id int32, arg database.ManualPostParams) (database.ManualPost, error) {
	existing, err := s.store.GetManualPost(ctx, id)
	if err != nil {
		return database.ManualPost{}, err
	}
	if existing.Status == database.PostStatusSent {
		return database.ManualPost{}, fmt.Errorf("%w: post was already sent", ErrInvalidInput)
	}
	if err := s.normalize(&arg); err != nil {
		return database.ManualPost{}, err
	}
	return s.store.UpdateManualPost(ctx, id, arg)
}

func (s *ManualPostService) Delete(ctx context.Context, id int32) error {
	return s.store.DeleteManualPost(ctx, id)
}

// Send posts immediately to every channel of the post. The post counts as
// sent when at least one channel accepted it.
func (s *ManualPostService) Send(ctx context.Context, id int32) (database.ManualPost, error) {
	post, err := s.store.GetManualPost(ctx, id)
	if err != nil {
		return database.ManualPost{}, err
	}
	if post.Status == database.PostStatusSent {
		return post, fmt.Errorf("%w: post was already sent", ErrInvalidInput)
	}
	return s.dispatch(ctx, post)
}

// DispatchScheduled sends scheduled posts whose time has come. Posts are
// claimed atomically so concurrent dispatchers never double-send.
func (s *ManualPostService) DispatchScheduled(ctx context.Context, now time.Time) (int, error) {
	posts, err := s.store.ClaimDueManualPosts(ctx, now, dispatchBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due posts: %w", err)
	}

	sent := 0
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		p, err := s.dispatch(ctx, post)
		if err != nil {
			s.logger.Error().Err(err).Int32("post_id", post.ID).Msg("Scheduled post failed")
		}
		if p.Status == database.PostStatusSent {
			sent++
		}
	}
	return sent, nil
}

func (s *ManualPostService) dispatch(ctx context.Context, post database.ManualPost) (database.ManualPost, error) {
	channels, err := s.store.GetChannelsByIDs(ctx, post.ChannelIDs)
	if err != nil {
		return post, fmt.Errorf("failed to load channels: %w", err)
	}

	text := telegram.Bold(post.Title) + "\n\n" + post.Content
	image := ""
	if post.ImageURL != nil {
		image = *post.ImageURL
	}

	var failures []error
	delivered := 0
	for _, ch := range channels {
		if !ch.IsActive {
			continue
		}
		start := time.Now()
		msgID, err := telegram.Publish(ctx, s.sender, ch.TelegramChatID, text, image, s.logger)
		s.log(ctx, ch.ID, text, msgID, err)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", ch.Name, err))
			s.logger.LogPost(ch.ID, contentTypeManual, database.LogStatusFailed, 0, time.Since(start), err)
			continue
		}
		delivered++
		s.logger.LogPost(ch.ID, contentTypeManual, database.LogStatusSuccess, msgID, time.Since(start), nil)
	}

	now := s.now()
	status := database.PostStatusSent
	var sentAt *time.Time
	var errMsg *string
	if delivered > 0 {
		sentAt = &now
	} else {
		status = database.PostStatusFailed
		if len(failures) == 0 {
			failures = append(failures, errors.New("no active channels"))
		}
	}
	joined := errors.Join(failures...)
	if joined != nil {
		msg := joined.Error()
		errMsg = &msg
	}

	if err := s.store.SetManualPostResult(ctx, post.ID, status, sentAt, errMsg); err != nil {
		return post, fmt.Errorf("failed to store post result: %w", err)
	}
	post.Status, post.SentAt, post.Error = status, sentAt, errMsg
	if status == database.PostStatusFailed {
		return post, joined
	}
	return post, nil
}

func (s *ManualPostService) log(ctx context.Context, channelID int32, text string, msgID int, postErr error) {
	preview := rss.Truncate(text, previewLength)
	params := database.CreateLogParams{
		ChannelID:      &channelID,
		ContentType:    contentTypeManual,
		Status:         database.LogStatusSuccess,
		ContentPreview: &preview,
	}
	if postErr != nil {
		msg := postErr.Error()
		params.Status, params.Error = database.LogStatusFailed, &msg
	} else {
		id := int64(msgID)
		params.MessageID = &id
	}
	if _, err := s.store.CreateLog(ctx, params); err != nil {
		s.logger.Error().Err(err).Str("action", "log_write_failed").Msg("Failed to write automation log")
	}
}

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/flujo/flujo/internal/extract"
	"github.com/flujo/flujo/internal/model"
	"github.com/flujo/flujo/internal/normalize"
	"github.com/flujo/flujo/internal/service"
)

// SyncConfig bounds one sync run.
type SyncConfig struct {
	Location        *time.Location
	Owner           string
	Mailbox         string
	FromFilter      string
	SubjectFilter   string
	DefaultCurrency string
	Days            int
	Limit           int
}

// Syncer pulls new mailbox messages into the staging store, advancing the
// per-mailbox cursor only after the batch is durably staged.
type Syncer struct {
	store  service.Storage
	mail   service.Mailbox
	engine *extract.Engine
	cfg    SyncConfig
}

// NewSyncer creates a sync orchestrator.
func NewSyncer(store service.Storage, mail service.Mailbox, cfg SyncConfig) *Syncer {
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	return &Syncer{
		store:  store,
		mail:   mail,
		engine: extract.NewEngine(cfg.DefaultCurrency),
		cfg:    cfg,
	}
}

// Run executes one sync pass. The cursor is the only durable progress
// marker: a crash before the final advance means the next run reprocesses
// the same UIDs, which the hash-keyed upsert absorbs.
func (s *Syncer) Run(ctx context.Context) (*model.RunReport, error) {
	report := &model.RunReport{StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	cursor, err := s.store.GetSyncCursor(ctx, s.cfg.Owner, s.cfg.Mailbox)
	if err != nil {
		return report, err
	}
	var lastUID uint32
	if cursor != nil {
		lastUID = cursor.LastUID
	}

	if err := s.mail.Connect(ctx); err != nil {
		return report, err
	}
	defer func() {
		if closeErr := s.mail.Close(); closeErr != nil {
			slog.Warn("Failed to close mailbox session", "error", closeErr)
		}
	}()

	since := time.Now().AddDate(0, 0, -s.cfg.Days)
	uids, err := s.mail.SearchWindow(ctx, since, time.Time{})
	if err != nil {
		return report, fmt.Errorf("mailbox search failed: %w", err)
	}

	// Newest first, only UIDs past the cursor, capped at the batch limit.
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	batch := make([]uint32, 0, s.cfg.Limit)
	for _, uid := range uids {
		if uid <= lastUID {
			continue
		}
		batch = append(batch, uid)
		if len(batch) >= s.cfg.Limit {
			break
		}
	}

	slog.Info("Sync batch assembled",
		"owner", s.cfg.Owner,
		"mailbox", s.cfg.Mailbox,
		"cursor", lastUID,
		"found", len(uids),
		"batch", len(batch))

	var maxUID uint32
	for _, uid := range batch {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		if uid > maxUID {
			maxUID = uid
		}

		detail := s.stageOne(ctx, uid)
		report.Add(detail)
	}

	if maxUID > lastUID {
		if err := s.store.AdvanceSyncCursor(ctx, s.cfg.Owner, s.cfg.Mailbox, maxUID); err != nil {
			return report, err
		}
	}

	return report, nil
}

// stageOne fetches, filters, extracts, and stages a single message. Any
// failure is isolated to the item.
func (s *Syncer) stageOne(ctx context.Context, uid uint32) model.ItemDetail {
	msg, err := s.mail.FetchMessage(ctx, uid)
	if err != nil {
		return model.ItemDetail{UID: uid, Status: model.StatusError, Reason: err.Error()}
	}

	if forwardPrefix.MatchString(msg.Subject) {
		return model.ItemDetail{UID: uid, Status: model.StatusFiltered, Reason: "forwarded or reply", Subject: msg.Subject}
	}
	if !senderMatches(msg, s.cfg.FromFilter) {
		return model.ItemDetail{UID: uid, Status: model.StatusFiltered, Reason: "sender filter", Subject: msg.Subject}
	}
	if s.cfg.SubjectFilter != "" &&
		!strings.Contains(normalize.ForMatch(msg.Subject), normalize.ForMatch(s.cfg.SubjectFilter)) {
		return model.ItemDetail{UID: uid, Status: model.StatusFiltered, Reason: "subject filter", Subject: msg.Subject}
	}

	// Best-effort extraction; an incomplete result still stages, Promote
	// fills the gaps later.
	result := s.engine.FromMessage(msg.Subject, msg.Body())

	staged := &model.StagedMessage{
		Owner:         s.cfg.Owner,
		Provider:      "imap",
		Mailbox:       s.cfg.Mailbox,
		ProviderUID:   uid,
		MessageID:     msg.MessageID,
		Subject:       msg.Subject,
		ArrivalTime:   msg.ArrivalTime,
		LocalDate:     LocalDate(msg.ArrivalTime, s.cfg.Location),
		Source:        string(model.SourceEmail),
		SenderName:    msg.SenderName,
		SenderAddress: msg.SenderAddress,
		Merchant:      result.Merchant,
		Amount:        result.Amount,
		Currency:      result.Currency,
		CardLast4:     result.Last4,
	}
	staged.ComputeHash()

	inserted, err := s.store.UpsertStagedMessage(ctx, staged)
	if err != nil {
		return model.ItemDetail{UID: uid, Status: model.StatusError, Reason: err.Error(), Subject: msg.Subject}
	}

	status := model.StatusStaged
	reason := ""
	if !inserted {
		// Same logical message already staged, e.g. a prior run saw an
		// older copy. Not an error; the cursor still advances.
		status = model.StatusDuplicate
		reason = "already staged"
	}

	return model.ItemDetail{
		UID:      uid,
		Status:   status,
		Reason:   reason,
		Subject:  msg.Subject,
		Merchant: staged.Merchant,
		Hash:     staged.Hash,
		StagedID: staged.ID,
	}
}

func senderMatches(msg *service.MailMessage, fromFilter string) bool {
	if fromFilter == "" {
		return true
	}
	sender := normalize.ForMatch(msg.SenderName + " " + msg.SenderAddress)
	return strings.Contains(sender, normalize.ForMatch(fromFilter))
}

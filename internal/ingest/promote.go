package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/flujo/flujo/internal/common"
	"github.com/flujo/flujo/internal/extract"
	"github.com/flujo/flujo/internal/model"
	"github.com/flujo/flujo/internal/rules"
	"github.com/flujo/flujo/internal/service"
)

// PromoteConfig bounds one promote run. Budget is a wall-clock allowance
// measured from run start; zero disables the deadline, and a negative value
// puts the deadline in the past so the run reports a clean cutoff without
// touching any row.
type PromoteConfig struct {
	Location          *time.Location
	Owner             string
	Mailbox           string
	FromFilter        string
	DefaultCurrency   string
	Limit             int
	FallbackScanLimit int
	Budget            time.Duration
}

// Promoter drains staged, unprocessed messages into the ledger. The mailbox
// session is opened lazily, at most once per run, and only when a staged row
// lacks extracted fields.
type Promoter struct {
	store      service.Storage
	mail       service.Mailbox
	engine     *extract.Engine
	cfg        PromoteConfig
	mailOpened bool
}

// NewPromoter creates a promote orchestrator.
func NewPromoter(store service.Storage, mail service.Mailbox, cfg PromoteConfig) *Promoter {
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	if cfg.FallbackScanLimit <= 0 {
		cfg.FallbackScanLimit = 10
	}
	return &Promoter{
		store:  store,
		mail:   mail,
		engine: extract.NewEngine(cfg.DefaultCurrency),
		cfg:    cfg,
	}
}

// Run executes one promote pass. Processed rows are never rolled back on a
// budget cutoff; unprocessed rows are simply picked up by the next run.
func (p *Promoter) Run(ctx context.Context) (*model.RunReport, error) {
	report := &model.RunReport{StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	var deadline time.Time
	if p.cfg.Budget != 0 {
		deadline = report.StartedAt.Add(p.cfg.Budget)
	}

	defer func() {
		if p.mailOpened {
			if closeErr := p.mail.Close(); closeErr != nil {
				slog.Warn("Failed to close mailbox session", "error", closeErr)
			}
		}
	}()

	ruleList, err := p.store.GetActiveMerchantRules(ctx, p.cfg.Owner)
	if err != nil {
		return report, err
	}
	matcher := rules.NewMatcher(ruleList)

	staged, err := p.store.GetUnprocessedMessages(ctx, p.cfg.Owner, p.cfg.Limit)
	if err != nil {
		return report, err
	}

	slog.Info("Promote batch assembled",
		"owner", p.cfg.Owner,
		"pending", len(staged),
		"rules", len(ruleList))

	for i := range staged {
		if !deadline.IsZero() && time.Now().After(deadline) {
			report.BudgetExceeded = true
			slog.Info("Promote budget exceeded, stopping cleanly",
				"processed", len(report.Items),
				"remaining", len(staged)-i)
			break
		}
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		detail, fatal := p.promoteOne(ctx, &staged[i], matcher)
		report.Add(detail)
		if fatal != nil {
			return report, fatal
		}
	}

	return report, nil
}

// promoteOne runs the state machine for one staged row:
// attempt-extraction -> fallback-fetch -> validate -> rule-match ->
// ledger-upsert -> mark-processed. The second return value is non-nil only
// for failures that abort the whole run, such as a mailbox auth error.
func (p *Promoter) promoteOne(ctx context.Context, msg *model.StagedMessage, matcher *rules.Matcher) (model.ItemDetail, error) {
	if !msg.HasExtractedFields() {
		if err := p.fillFromMailbox(ctx, msg); err != nil {
			detail := model.ItemDetail{StagedID: msg.ID, UID: msg.ProviderUID, Status: model.StatusError, Reason: err.Error(), Subject: msg.Subject}
			if common.IsFatal(err) {
				return detail, err
			}
			return detail, nil
		}
	}

	if !msg.HasExtractedFields() {
		// Left unprocessed; retried next run rather than dead-lettered.
		return model.ItemDetail{
			StagedID: msg.ID,
			UID:      msg.ProviderUID,
			Status:   model.StatusSkipped,
			Reason:   "missing merchant, amount, or currency after fallback",
			Subject:  msg.Subject,
		}, nil
	}

	localDate := LocalDate(msg.ArrivalTime, p.cfg.Location)

	txn := &model.LedgerTransaction{
		Owner:          msg.Owner,
		Amount:         msg.Amount.Round(2),
		Currency:       msg.Currency,
		LocalDate:      localDate,
		Description:    msg.Merchant,
		Merchant:       msg.Merchant,
		RawDescription: msg.Subject,
		PaymentType:    "card",
		Source:         model.SourceEmail,
	}
	txn.Hash = model.ContentHash(msg.Owner, localDate, msg.Merchant, msg.Amount, msg.Currency, msg.Subject)

	if rule := matcher.Match(msg.Merchant); rule != nil {
		txn.CategoryID = rule.CategoryID
		txn.SubcategoryID = rule.SubcategoryID
	}

	inserted, err := p.store.UpsertLedgerTransaction(ctx, txn)
	if err != nil {
		return model.ItemDetail{StagedID: msg.ID, UID: msg.ProviderUID, Status: model.StatusError, Reason: err.Error(), Subject: msg.Subject}, nil
	}

	// Processed means a ledger decision was made, whether or not a new row
	// was created.
	if err := p.store.MarkMessageProcessed(ctx, msg); err != nil {
		return model.ItemDetail{StagedID: msg.ID, UID: msg.ProviderUID, Status: model.StatusError, Reason: err.Error(), Subject: msg.Subject}, nil
	}

	reason := ""
	if !inserted {
		reason = "already in ledger"
	}
	return model.ItemDetail{
		StagedID: msg.ID,
		UID:      msg.ProviderUID,
		Status:   model.StatusPromoted,
		Reason:   reason,
		Subject:  msg.Subject,
		Merchant: msg.Merchant,
		Hash:     txn.Hash,
	}, nil
}

// fillFromMailbox searches a ±24h window around the staged arrival time for
// a matching alert whose body yields a usable extraction, scanning a bounded
// number of candidates most-recent-first.
func (p *Promoter) fillFromMailbox(ctx context.Context, msg *model.StagedMessage) error {
	if !p.mailOpened {
		if err := p.mail.Connect(ctx); err != nil {
			return err
		}
		p.mailOpened = true
	}

	since := msg.ArrivalTime.Add(-24 * time.Hour)
	before := msg.ArrivalTime.Add(24 * time.Hour)
	uids, err := p.mail.SearchWindow(ctx, since, before)
	if err != nil {
		return fmt.Errorf("fallback search failed: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if len(uids) > p.cfg.FallbackScanLimit {
		uids = uids[:p.cfg.FallbackScanLimit]
	}

	for _, uid := range uids {
		candidate, fetchErr := p.mail.FetchMessage(ctx, uid)
		if fetchErr != nil {
			slog.Debug("Fallback fetch failed, trying next candidate",
				"uid", uid, "error", fetchErr)
			continue
		}
		if !senderMatches(candidate, p.cfg.FromFilter) {
			continue
		}

		result := p.engine.FromMessage(candidate.Subject, candidate.Body())
		if !result.Usable() {
			continue
		}

		msg.Merchant = result.Merchant
		msg.Amount = result.Amount
		msg.Currency = result.Currency
		if msg.CardLast4 == "" {
			msg.CardLast4 = result.Last4
		}
		return nil
	}

	return nil
}

package application

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/createnexxusvision/NILPOC/internal/contracts"
	"github.com/createnexxusvision/NILPOC/internal/domain"
	"github.com/createnexxusvision/NILPOC/internal/ports"
)

const eventSchemaVersion = "1.0"

// enqueueEvent writes the audit record through the outbox so entity state
// and event delivery cannot diverge. The trace id carries the request id of
// the triggering call when one exists.
func (s *Service) enqueueEvent(ctx context.Context, actor Actor, eventType, partitionKey string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	traceID := actor.RequestID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	envelope := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       s.nowFn(),
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    eventSchemaVersion,
		Data:             data,
	}
	record := ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: envelope.EventClass,
		Envelope:   envelope,
		CreatedAt:  envelope.OccurredAt,
	}
	if err := s.outbox.Enqueue(ctx, record); err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	return nil
}

func formatEventTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s *Service) enqueueDealCreated(ctx context.Context, actor Actor, deal domain.Deal) error {
	return s.enqueueEvent(ctx, actor, domain.EventDealCreated, strconv.FormatUint(deal.DealID, 10), contracts.DealCreatedPayload{
		DealID:      deal.DealID,
		Sponsor:     deal.Sponsor,
		Beneficiary: deal.Beneficiary,
		Asset:       deal.Asset,
		Amount:      domain.AmountString(deal.Amount),
		Deadline:    formatEventTime(deal.Deadline),
		TermsDigest: deal.TermsDigest,
	})
}

func (s *Service) enqueueDealDelivered(ctx context.Context, actor Actor, deal domain.Deal) error {
	deliveredAt := ""
	if deal.DeliveredAt != nil {
		deliveredAt = formatEventTime(*deal.DeliveredAt)
	}
	return s.enqueueEvent(ctx, actor, domain.EventDealDelivered, strconv.FormatUint(deal.DealID, 10), contracts.DealDeliveredPayload{
		DealID:         deal.DealID,
		EvidenceDigest: deal.EvidenceDigest,
		DeliveredAt:    deliveredAt,
	})
}

func (s *Service) enqueueDealDisputed(ctx context.Context, actor Actor, deal domain.Deal, reasonCode, evidenceDigest string) error {
	return s.enqueueEvent(ctx, actor, domain.EventDealDisputed, strconv.FormatUint(deal.DealID, 10), contracts.DealDisputedPayload{
		DealID:         deal.DealID,
		RaisedBy:       actor.Identity,
		ReasonCode:     reasonCode,
		EvidenceDigest: evidenceDigest,
	})
}

func (s *Service) enqueueDealSettled(ctx context.Context, actor Actor, deal domain.Deal, gross, fee, net *big.Int, settledAt time.Time) error {
	return s.enqueueEvent(ctx, actor, domain.EventDealSettled, strconv.FormatUint(deal.DealID, 10), contracts.DealSettledPayload{
		DealID:      deal.DealID,
		Sponsor:     deal.Sponsor,
		Beneficiary: deal.Beneficiary,
		Asset:       deal.Asset,
		Gross:       gross.String(),
		Fee:         fee.String(),
		Net:         net.String(),
		SettledAt:   formatEventTime(settledAt),
	})
}

func (s *Service) enqueueDealRefunded(ctx context.Context, actor Actor, deal domain.Deal, amount *big.Int, refundedAt time.Time) error {
	return s.enqueueEvent(ctx, actor, domain.EventDealRefunded, strconv.FormatUint(deal.DealID, 10), contracts.DealRefundedPayload{
		DealID:     deal.DealID,
		Sponsor:    deal.Sponsor,
		Asset:      deal.Asset,
		Amount:     amount.String(),
		RefundedAt: formatEventTime(refundedAt),
	})
}

func (s *Service) enqueueGrantCreated(ctx context.Context, actor Actor, grant domain.Grant) error {
	return s.enqueueEvent(ctx, actor, domain.EventGrantCreated, strconv.FormatUint(grant.GrantID, 10), contracts.GrantCreatedPayload{
		GrantID:     grant.GrantID,
		Sponsor:     grant.Sponsor,
		Beneficiary: grant.Beneficiary,
		Asset:       grant.Asset,
		Amount:      domain.AmountString(grant.Amount),
		UnlockTime:  formatEventTime(grant.UnlockTime),
		TermsDigest: grant.TermsDigest,
	})
}

func (s *Service) enqueueGrantAttested(ctx context.Context, actor Actor, grant domain.Grant) error {
	return s.enqueueEvent(ctx, actor, domain.EventGrantAttested, strconv.FormatUint(grant.GrantID, 10), contracts.GrantAttestedPayload{
		GrantID:           grant.GrantID,
		Attester:          actor.Identity,
		AttestationDigest: grant.AttestationDigest,
	})
}

func (s *Service) enqueueGrantClosed(ctx context.Context, actor Actor, grant domain.Grant, eventType string, amount *big.Int, closedAt time.Time) error {
	return s.enqueueEvent(ctx, actor, eventType, strconv.FormatUint(grant.GrantID, 10), contracts.GrantClosedPayload{
		GrantID:  grant.GrantID,
		Asset:    grant.Asset,
		Amount:   amount.String(),
		ClosedAt: formatEventTime(closedAt),
	})
}

func (s *Service) enqueueSplitDefined(ctx context.Context, actor Actor, split domain.Split, definedBy string) error {
	return s.enqueueEvent(ctx, actor, domain.EventSplitDefined, strconv.FormatUint(split.SplitID, 10), contracts.SplitDefinedPayload{
		SplitID:        split.SplitID,
		ContentHash:    split.ContentHash,
		RecipientCount: len(split.Recipients),
		DefinedBy:      definedBy,
	})
}

func (s *Service) enqueuePayoutExecuted(ctx context.Context, actor Actor, payout domain.Payout) error {
	return s.enqueueEvent(ctx, actor, domain.EventPayoutExecuted, strconv.FormatUint(payout.PayoutID, 10), contracts.PayoutExecutedPayload{
		PayoutID:   payout.PayoutID,
		Ref:        payout.Ref,
		Asset:      payout.Asset,
		Amount:     domain.AmountString(payout.Amount),
		SplitID:    payout.SplitID,
		Payer:      payout.Payer,
		Authorizer: payout.Authorizer,
		ExecutedAt: formatEventTime(payout.ExecutedAt),
	})
}

func (s *Service) enqueueFeePolicyUpdated(ctx context.Context, actor Actor, policy domain.FeePolicy) error {
	return s.enqueueEvent(ctx, actor, domain.EventFeePolicySet, actor.Identity, contracts.FeePolicyUpdatedPayload{
		FeeBps:       policy.FeeBps,
		FeeRecipient: policy.FeeRecipient,
		UpdatedBy:    actor.Identity,
	})
}

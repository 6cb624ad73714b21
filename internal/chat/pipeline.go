// Package chat implements the message pipeline shared by the WebSocket chat
// path and the HTTP post path: authorization, ban/mute enforcement,
// auto-moderation, shadow-ban handling, persistence and fan-out run in the
// same order regardless of transport.
package chat

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"gamehub-chat/internal/channels"
	"gamehub-chat/internal/models"
	"gamehub-chat/internal/moderation"
	"gamehub-chat/internal/observability"
	"gamehub-chat/internal/repositories"
)

// Broadcaster fans delivered frames out to live connections. Implemented by
// the WebSocket hub.
type Broadcaster interface {
	BroadcastChannel(channel string, payload any)
	BroadcastUser(username string, payload any)
}

// Auditor emits best-effort moderation audit events. Implemented by the
// telemetry audit emitter.
type Auditor interface {
	Emit(ctx context.Context, level, text, username string)
}

// OutcomeKind classifies what the pipeline did with a message.
type OutcomeKind int

const (
	// OutcomeDelivered: persisted and broadcast.
	OutcomeDelivered OutcomeKind = iota
	// OutcomeShadowed: echoed only to the sender's own connections.
	OutcomeShadowed
	// OutcomeNotAllowed: sender may not write to the channel.
	OutcomeNotAllowed
	// OutcomeBanned: sender is banned; nothing persisted.
	OutcomeBanned
	// OutcomeMuted: sender is muted; nothing persisted.
	OutcomeMuted
	// OutcomeModerated: auto-mod removed the message.
	OutcomeModerated
)

// Outcome is the pipeline result surfaced to the transport. Notice holds the
// system message for the sender on rejection outcomes.
type Outcome struct {
	Kind    OutcomeKind
	Message models.Message
	Notice  string
}

// Pipeline orchestrates a message from ingest to fan-out.
type Pipeline struct {
	authz       *channels.Authorizer
	state       *moderation.State
	engine      *moderation.Engine
	messages    repositories.MessageRepository
	reports     repositories.ReportRepository
	broadcaster Broadcaster
	audit       Auditor
}

// NewPipeline wires the pipeline. audit may be nil.
func NewPipeline(
	authz *channels.Authorizer,
	state *moderation.State,
	engine *moderation.Engine,
	messages repositories.MessageRepository,
	reports repositories.ReportRepository,
	broadcaster Broadcaster,
	audit Auditor,
) *Pipeline {
	return &Pipeline{
		authz:       authz,
		state:       state,
		engine:      engine,
		messages:    messages,
		reports:     reports,
		broadcaster: broadcaster,
		audit:       audit,
	}
}

// Submit runs one authenticated message through the pipeline. The caller has
// already applied transport rate limiting and resolved the session. A
// returned error means persistence failed after every check passed; nothing
// was broadcast.
func (p *Pipeline) Submit(ctx context.Context, username, channel, text string, attachments []models.Attachment) (Outcome, error) {
	ctx, span := otel.Tracer("gamehub-chat/pipeline").Start(ctx, "pipeline.submit")
	defer span.End()
	span.SetAttributes(attribute.String("chat.channel", channel))

	if !p.authz.IsAllowed(username, channel) {
		observability.IncPipelineOutcome("not_allowed")
		return Outcome{Kind: OutcomeNotAllowed, Notice: "Not allowed for channel"}, nil
	}

	if banned, reason := p.state.BannedReason(username); banned {
		observability.IncPipelineOutcome("banned")
		return Outcome{Kind: OutcomeBanned, Notice: banNotice(reason)}, nil
	}

	if p.state.IsMuted(username) {
		observability.IncPipelineOutcome("muted")
		return Outcome{Kind: OutcomeMuted, Notice: "You are muted. Try again later."}, nil
	}

	rec, err := p.state.Get(ctx, username)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: load moderation state: %w", err)
	}

	decision := p.engine.Review(ctx, text, rec.Toxicity)
	switch decision.Verdict {
	case moderation.VerdictMute:
		p.state.Mute(username)
		p.ledger(ctx, moderation.ActorAutoMod, username, channel, text, decision.Reason)
		p.emitAudit(ctx, "warn", fmt.Sprintf("auto-mod muted message score=%d reason=%q", decision.Score, decision.Reason), username)
		observability.IncModerationAction("mute")
		observability.IncPipelineOutcome("moderated")
		return Outcome{
			Kind:   OutcomeModerated,
			Notice: "Your message was removed: " + decision.Reason + ". You are muted for 10 minutes.",
		}, nil

	case moderation.VerdictWarn:
		if _, err := p.state.AddWarning(ctx, username); err != nil {
			log.Printf("pipeline: add warning failed user=%s: %v", username, err)
		}
		p.ledger(ctx, moderation.ActorAutoMod, username, channel, text, decision.Reason)
		p.emitAudit(ctx, "warn", fmt.Sprintf("auto-mod removed message score=%d reason=%q", decision.Score, decision.Reason), username)
		observability.IncModerationAction("warn")
		observability.IncPipelineOutcome("moderated")
		return Outcome{
			Kind:   OutcomeModerated,
			Notice: "Your message was removed: " + decision.Reason + ". A warning has been added to your account.",
		}, nil
	}

	// Shadow-ban: checked after scoring, before persistence. The message is
	// echoed only to the sender's own tabs and never stored.
	if rec.IsShadowBanned {
		p.ledger(ctx, moderation.ActorAutoMod, username, channel, text, "shadowban-message")
		observability.IncPipelineOutcome("shadowed")

		echo := models.Message{Channel: channel, Username: username, Text: text}
		frame := models.NewChatFrame(echo)
		frame.Shadow = true
		p.broadcaster.BroadcastUser(username, frame)
		return Outcome{Kind: OutcomeShadowed, Message: echo}, nil
	}

	msg, err := p.messages.CreateMessage(ctx, channel, username, text)
	if err != nil {
		observability.IncPipelineOutcome("storage_error")
		return Outcome{}, fmt.Errorf("pipeline: persist message: %w", err)
	}
	for _, att := range attachments {
		att.MessageID = msg.ID
		stored, err := p.messages.CreateAttachment(ctx, att)
		if err != nil {
			observability.IncPipelineOutcome("storage_error")
			return Outcome{}, fmt.Errorf("pipeline: persist attachment: %w", err)
		}
		msg.Attachments = append(msg.Attachments, stored)
	}

	observability.IncPipelineOutcome("delivered")
	p.broadcaster.BroadcastChannel(channel, models.NewChatFrame(msg))
	return Outcome{Kind: OutcomeDelivered, Message: msg}, nil
}

// ledger appends to the append-only report ledger. Failures are logged, not
// propagated: the moderation decision already stands.
func (p *Pipeline) ledger(ctx context.Context, reporter, offender, channel, text, reason string) {
	_, err := p.reports.Create(ctx, models.Report{
		Reporter:    reporter,
		Offender:    offender,
		Channel:     channel,
		MessageText: text,
		Reason:      reason,
	})
	if err != nil {
		log.Printf("pipeline: ledger write failed offender=%s reason=%q: %v", offender, reason, err)
	}
}

func (p *Pipeline) emitAudit(ctx context.Context, level, text, username string) {
	if p.audit != nil {
		p.audit.Emit(ctx, level, text, username)
	}
}

func banNotice(reason string) string {
	if reason == "" {
		return "You are banned."
	}
	return "You are banned: " + reason
}

package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/locas/locas-backend/internal/analyzer"
	"github.com/locas/locas-backend/internal/location"
	"github.com/locas/locas-backend/internal/providers"
	"github.com/locas/locas-backend/internal/session"
	"github.com/locas/locas-backend/internal/tools"
)

// Response statuses surfaced to the API caller.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

const (
	defaultMaxToolRounds = 5
	defaultHistoryWindow = 10
	defaultTurnTimeout   = 30 * time.Second
)

const systemPrompt = `You are a helpful location assistant that helps users find places near them and provides environmental information.

When users ask about places, use the appropriate search function based on their request:
- For finding places by category, use find_places
- For comprehensive location analysis, use analyze_location_suitability
- For business viability analysis, use analyze_business_viability

When users ask about air quality or pollen, use the get_environmental_data function.

Always format search results in a user-friendly way. If distances are available,
mention them to help the user understand how far places are from them.

If the requested data is not available for a location, explain the issue in a helpful way.`

const missingAddressResult = "The address was not found. Kindly include the address in your query to proceed."

// Outcome is the result of processing one query turn. SessionID is
// authoritative: callers must reuse it verbatim on the next turn.
type Outcome struct {
	Status    Status
	Result    string
	Message   string
	SessionID string
}

// Extractor parses a location out of raw query text.
type Extractor interface {
	Extract(ctx context.Context, text string) location.Parsed
}

// Config tunes the dispatcher's loop and timeouts.
type Config struct {
	Model         string
	MaxToolRounds int
	HistoryWindow int
	TurnTimeout   time.Duration
}

// Dispatcher owns the query-orchestration core: session continuity,
// location resolution, analyzer routing, and the tool-calling loop.
type Dispatcher struct {
	store      session.Store
	locks      *session.KeyedMutex
	extractor  Extractor
	classifier *Classifier
	registry   *tools.Registry
	provider   providers.Provider
	analyzers  map[QueryKind]analyzer.Analyzer
	cfg        Config
	log        *logrus.Logger
}

// New wires a dispatcher. Analyzers are looked up by classification kind.
func New(store session.Store, extractor Extractor, classifier *Classifier, registry *tools.Registry,
	provider providers.Provider, analyzers []analyzer.Analyzer, cfg Config, log *logrus.Logger) *Dispatcher {

	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}
	if log == nil {
		log = logrus.New()
	}

	byKind := make(map[QueryKind]analyzer.Analyzer, len(analyzers))
	for _, a := range analyzers {
		byKind[QueryKind(a.Kind())] = a
	}

	return &Dispatcher{
		store:      store,
		locks:      session.NewKeyedMutex(),
		extractor:  extractor,
		classifier: classifier,
		registry:   registry,
		provider:   provider,
		analyzers:  byKind,
		cfg:        cfg,
		log:        log,
	}
}

// Process handles one query turn end to end. The turn is atomic: the
// session is persisted only once a response has been produced, under a
// per-id lock so concurrent turns for the same session serialize.
func (d *Dispatcher) Process(ctx context.Context, sessionID, query string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.TurnTimeout)
	defer cancel()

	id := sessionID
	if id == "" {
		id = uuid.New().String()
	}

	d.locks.Lock(id)
	defer d.locks.Unlock(id)

	log := d.log.WithFields(logrus.Fields{"session_id": id, "query": query})

	sess, err := d.store.Get(ctx, id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		// Unknown or expired ids are recovered transparently; the
		// minted id goes back to the caller in the outcome.
		sess = session.New(id)
	case err != nil:
		log.WithError(err).Error("failed to load session")
		return Outcome{Status: StatusError, Message: "Unable to process your request right now.", SessionID: id}
	}

	parsed := d.extractor.Extract(ctx, query)
	effective := sess.LastLocation
	if parsed.Found() {
		coords := parsed.Coordinates
		effective = &coords
		sess.LastLocation = &coords
		log.WithFields(logrus.Fields{
			"source":    parsed.Source,
			"latitude":  coords.Latitude,
			"longitude": coords.Longitude,
		}).Info("location extracted from query")
	}

	outcome := d.answer(ctx, log, sess, query, effective)
	outcome.SessionID = id
	if outcome.Status == StatusError {
		return outcome
	}

	sess.Append(session.RoleUser, query)
	sess.Append(session.RoleAssistant, outcome.Result)
	if err := d.store.Save(ctx, sess); err != nil {
		log.WithError(err).Error("failed to persist session")
		return Outcome{Status: StatusError, Message: "Unable to process your request right now.", SessionID: id}
	}

	return outcome
}

// History returns the persisted message list for a session.
func (d *Dispatcher) History(ctx context.Context, sessionID string) ([]session.Message, error) {
	sess, err := d.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// answer routes the turn to a direct analyzer or the tool-calling loop.
func (d *Dispatcher) answer(ctx context.Context, log *logrus.Entry, sess *session.Session, query string, effective *location.Coordinates) Outcome {
	cls := d.classifier.Classify(query)

	if a, ok := d.analyzers[cls.Kind]; ok && cls.Kind != KindGeneric {
		if effective == nil {
			log.Warn("analyzer query without a resolvable location")
			return Outcome{
				Status:  StatusWarning,
				Message: "No location information found in query",
				Result:  missingAddressResult,
			}
		}

		log.WithField("analyzer", cls.Kind).Info("routing query to analyzer")
		result, err := a.Analyze(ctx, analyzer.Request{
			Coordinates:  *effective,
			Query:        query,
			BusinessType: cls.BusinessType,
		})
		if err != nil {
			var analysisErr *analyzer.AnalysisError
			if errors.As(err, &analysisErr) {
				log.WithError(err).Error("analysis failed")
				return Outcome{Status: StatusError, Message: analysisErr.Cause}
			}
			log.WithError(err).Error("analyzer failed unexpectedly")
			return Outcome{Status: StatusError, Message: "Unable to analyze this location right now."}
		}
		return Outcome{Status: StatusSuccess, Result: result}
	}

	return d.runToolLoop(ctx, log, sess, query, effective)
}

// runToolLoop drives the model conversation: each round either yields a
// final text reply or tool calls to execute and feed back. The round
// count is bounded; hitting the bound produces a degraded best-effort
// answer rather than an error.
func (d *Dispatcher) runToolLoop(ctx context.Context, log *logrus.Entry, sess *session.Session, query string, effective *location.Coordinates) Outcome {
	messages := []providers.Message{{Role: "system", Content: systemPrompt}}
	for _, m := range recentHistory(sess.Messages, d.cfg.HistoryWindow) {
		messages = append(messages, providers.Message{Role: m.Role, Content: m.Content})
	}

	userContent := query
	if effective != nil {
		userContent = fmt.Sprintf("%s My location is %g, %g", query, effective.Latitude, effective.Longitude)
	}
	messages = append(messages, providers.Message{Role: "user", Content: userContent})

	// The tool schema must stay stable across rounds within one loop.
	definitions := d.registry.Definitions()

	var gathered []string
	for round := 1; round <= d.cfg.MaxToolRounds; round++ {
		resp, err := d.provider.Complete(ctx, providers.CompletionRequest{
			Model:      d.cfg.Model,
			Messages:   messages,
			Tools:      definitions,
			ToolChoice: "auto",
		})
		if err != nil {
			log.WithError(err).WithField("round", round).Error("model round failed")
			return Outcome{Status: StatusError, Message: "Unable to process your request right now."}
		}
		if len(resp.Choices) == 0 {
			log.WithField("round", round).Error("model returned no choices")
			return Outcome{Status: StatusError, Message: "Unable to process your request right now."}
		}

		reply := resp.Choices[0].Message
		if len(reply.ToolCalls) == 0 {
			content := reply.Content
			if content == "" {
				content = "I couldn't generate a response."
			}
			return Outcome{Status: StatusSuccess, Result: content}
		}

		messages = append(messages, reply)
		results := d.executeToolCalls(ctx, reply.ToolCalls)
		for i, call := range reply.ToolCalls {
			log.WithFields(logrus.Fields{
				"round":   round,
				"tool":    call.Function.Name,
				"success": results[i].Success,
			}).Info("tool call executed")

			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    results[i].Content(),
				ToolCallID: call.ID,
			})
			if results[i].Success {
				gathered = append(gathered, results[i].Payload)
			}
		}
	}

	// Loop budget exhausted: degrade to the best partial answer instead
	// of hanging or erroring out.
	log.WithField("max_rounds", d.cfg.MaxToolRounds).Warn("tool loop hit round limit")
	return Outcome{Status: StatusSuccess, Result: degradedAnswer(gathered)}
}

// executeToolCalls runs every call of one round, concurrently when the
// model requested several. Each call yields exactly one result.
func (d *Dispatcher) executeToolCalls(ctx context.Context, calls []providers.ToolCall) []tools.Result {
	results := make([]tools.Result, len(calls))
	if len(calls) == 1 {
		results[0] = d.registry.Dispatch(ctx, calls[0])
		return results
	}

	var g errgroup.Group
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = d.registry.Dispatch(ctx, call)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // dispatch failures land in result slots

	return results
}

func degradedAnswer(gathered []string) string {
	if len(gathered) == 0 {
		return "I wasn't able to complete your request within the allowed number of steps. Please try a more specific question."
	}
	return "I couldn't finish a full answer, but here is what I found:\n\n" + strings.Join(gathered, "\n\n")
}

func recentHistory(messages []session.Message, window int) []session.Message {
	if len(messages) <= window {
		return messages
	}
	return messages[len(messages)-window:]
}

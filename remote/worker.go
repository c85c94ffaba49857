package remote

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bargain-hunter/services"
	"bargain-hunter/utils"
)

const simulatedNotes = "Simulated analysis based on heuristics."

// ServeAnalysis answers analysis requests on subject as a member of queue.
// Analyses are simulated with the heuristic analyzer. Malformed requests get
// an error reply. Drain or unsubscribe the returned subscription to stop.
func ServeAnalysis(nc *nats.Conn, subject, queue string, heuristic *services.HeuristicAnalyzer, logger *utils.Logger) (*nats.Subscription, error) {
	if heuristic == nil {
		heuristic = services.NewHeuristicAnalyzer(nil)
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if queue == "" {
		queue = DefaultQueue
	}
	tracer := otel.Tracer("bargain-hunter/remote")

	return nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		_, span := tracer.Start(extract(msg), "analysis.serve", trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		var resp AnalysisResponse
		var req AnalysisRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			logger.Warn("[worker] Malformed analysis request on %s: %v", msg.Subject, err)
			resp.Error = "malformed request"
		} else {
			span.SetAttributes(attribute.String("listing.id", req.Listing.ID))
			logger.Debug("[worker] Analyzing %s (prompt %d chars)", req.Listing.ID, len(req.Prompt))

			analysis := heuristic.Analyze(req.Listing)
			analysis.Notes = simulatedNotes
			resp.Analysis = &analysis
		}

		data, err := json.Marshal(resp)
		if err != nil {
			logger.Error("[worker] Encode reply: %v", err)
			return
		}
		if err := msg.Respond(data); err != nil {
			logger.Warn("[worker] Reply failed: %v", err)
		}
	})
}

package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isdmx/codebridge/sandbox"
	"github.com/isdmx/codebridge/sanitize"
	"github.com/isdmx/codebridge/validate"
)

// ConnectionGate is the slice of the connection manager the loop consults
// before every execution.
type ConnectionGate interface {
	EnsureReady(ctx context.Context) error
}

// Worker runs the request loop: read one line, process it fully, write
// exactly one response line, flush, repeat. Strictly sequential, so
// response order always matches request order.
type Worker struct {
	in        io.Reader
	out       io.Writer
	validator *validate.Validator
	sanitizer *sanitize.Sanitizer
	gate      ConnectionGate
	exec      sandbox.SnippetExecutor
	logger    *zap.Logger
}

// New creates a worker over the given streams
func New(in io.Reader, out io.Writer, validator *validate.Validator, sanitizer *sanitize.Sanitizer, gate ConnectionGate, exec sandbox.SnippetExecutor, logger *zap.Logger) *Worker {
	return &Worker{
		in:        in,
		out:       out,
		validator: validator,
		sanitizer: sanitizer,
		gate:      gate,
		exec:      exec,
		logger:    logger,
	}
}

// Run consumes the input stream until EOF. Every failure during a request
// is caught, classified, and written as a response line; only an
// unrecoverable read error terminates the loop early, after a final
// structured error line.
func (w *Worker) Run(ctx context.Context) error {
	reader := bufio.NewReader(w.in)
	writer := bufio.NewWriter(w.out)

	for {
		line, readErr := reader.ReadString('\n')

		if strings.TrimSpace(line) != "" {
			resp := w.process(ctx, line)
			w.write(writer, resp)
		}

		if readErr == io.EOF {
			w.logger.Info("input stream closed, shutting down")
			return nil
		}
		if readErr != nil {
			w.write(writer, failureResponse(
				string(sandbox.KindProtocol),
				"input stream failure: "+w.sanitizer.Clean(readErr.Error()),
				nil, "",
			))
			return fmt.Errorf("reading input: %w", readErr)
		}
	}
}

// process handles one complete input line and produces its response.
// No error may escape: every failure path returns a structured response.
func (w *Worker) process(ctx context.Context, line string) Response {
	req := parseLine(line)

	logID := req.RequestID
	if logID == "" {
		logID = uuid.NewString()
	}
	log := w.logger.With(zap.String("request_id", logID))

	if strings.TrimSpace(req.Code) == "" {
		log.Warn("request carried no code")
		return failureResponse(string(sandbox.KindProtocol), "no code provided", nil, req.RequestID)
	}

	outcome := w.validator.Check(req.Code)
	for _, warning := range outcome.Warnings {
		log.Warn("validation warning", zap.String("warning", warning))
	}
	if !outcome.Valid {
		log.Info("request rejected by validator", zap.Strings("violations", outcome.Errors))
		return failureResponse(
			string(sandbox.KindValidation),
			"code failed validation",
			map[string]any{"violations": outcome.Errors},
			req.RequestID,
		)
	}

	if err := w.gate.EnsureReady(ctx); err != nil {
		log.Error("connection not available", zap.Error(err))
		return failureResponse(
			string(sandbox.KindConnection),
			w.sanitizer.Clean(err.Error()),
			nil,
			req.RequestID,
		)
	}

	result := w.exec.Execute(ctx, sandbox.Request{Code: req.Code, RequestID: logID})
	if result.Failure != nil {
		log.Info("execution failed",
			zap.String("kind", string(result.Failure.Kind)),
			zap.String("message", result.Failure.Message),
		)
		return failureResponse(
			string(result.Failure.Kind),
			result.Failure.Message,
			result.Failure.Details,
			req.RequestID,
		)
	}

	log.Debug("execution succeeded")
	return successResponse(result.Data, req.RequestID)
}

// write serializes one response line and flushes it before the loop reads
// the next request.
func (w *Worker) write(writer *bufio.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		// The executor verifies result serializability, so this only
		// fires for pathological detail payloads; degrade to a minimal
		// error line rather than breaking the one-line-out contract.
		w.logger.Error("response serialization failed", zap.Error(err))
		data, _ = json.Marshal(failureResponse(
			string(sandbox.KindExecution),
			"response serialization failed",
			nil,
			resp.RequestID,
		))
	}

	if _, err := writer.Write(data); err != nil {
		w.logger.Error("response write failed", zap.Error(err))
		return
	}
	if err := writer.WriteByte('\n'); err != nil {
		w.logger.Error("response write failed", zap.Error(err))
		return
	}
	if err := writer.Flush(); err != nil {
		w.logger.Error("response flush failed", zap.Error(err))
	}
}

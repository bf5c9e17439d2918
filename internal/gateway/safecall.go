package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	pc "piston_control"
	"piston_control/internal/logger"
)

// SafeCall runs one network request and folds every outcome into a Result.
// It never retries and never lets an error or panic escape.
func SafeCall[T any](ctx context.Context, log *logger.Logger, call func(context.Context) (*http.Response, error)) (res pc.Result[T]) {
	log = logger.OrNop(log)
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("api_call_panic", "panic", r)
			res = pc.Failure[T](MsgUnknownPrefix+fmt.Sprint(r), 0)
		}
	}()

	resp, err := call(ctx)
	if err != nil {
		log.Warnw("api_call_failed", "kind", Classify(err).String(), "err", err)
		return pc.Failure[T](HumanMessage(err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warnw("api_read_body_failed", "status", resp.StatusCode, "err", err)
		return pc.Failure[T](HumanMessage(err), 0)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := httpErrorMessage(resp.StatusCode, body)
		log.Warnw("api_http_error", "status", resp.StatusCode, "path", requestPath(resp), "message", msg)
		return pc.Failure[T](msg, resp.StatusCode)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		log.Warnw("api_empty_response", "status", resp.StatusCode, "path", requestPath(resp))
		return pc.Failure[T](MsgEmptyResponse, 0)
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		log.Errorw("api_decode_failed", "path", requestPath(resp), "err", err)
		return pc.Failure[T](MsgBadResponse+": "+err.Error(), 0)
	}
	return pc.Success(out)
}

func requestPath(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.Path
}

package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/submerge/internal/merge"
)

// Runner executes one aggregate request.
type Runner interface {
	Run(ctx context.Context, req merge.Request) (*merge.Result, error)
}

type subHandler struct {
	run     Runner
	opt     Options
	metrics *httpMetrics
}

func (h subHandler) handleSub(w http.ResponseWriter, r *http.Request) {
	req, err := parseSubRequest(r)
	if err != nil {
		h.metrics.writeErrorFromErr(w, err)
		return
	}
	req.ID = RequestID(r.Context())

	// Keep a hard upper bound so handlers don't hang forever if upstream misbehaves.
	ctx, cancel := context.WithTimeout(r.Context(), h.opt.RunTimeout)
	defer cancel()

	res, err := h.run.Run(ctx, req)
	if err != nil {
		h.opt.Logger.Warn("aggregate failed", "request_id", req.ID, "err", err)
		h.metrics.writeErrorFromErr(w, err)
		return
	}
	WriteYAML(w, res.Output)
}

func parseSubRequest(r *http.Request) (merge.Request, error) {
	q := r.URL.Query()

	urls, err := rawValues(r.URL.RawQuery, "url")
	if err != nil {
		return merge.Request{}, err
	}
	req := merge.Request{URLs: strings.Join(urls, ",")}

	for key, dst := range map[string]*string{
		"name":     &req.Name,
		"type":     &req.Type,
		"server":   &req.Server,
		"template": &req.Template,
	} {
		v, err := singleQuery(q, key)
		if err != nil {
			return merge.Request{}, err
		}
		*dst = strings.TrimSpace(v)
	}

	limit, err := singleQuery(q, "limit")
	if err != nil {
		return merge.Request{}, err
	}
	if limit = strings.TrimSpace(limit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return merge.Request{}, requestError("INVALID_ARGUMENT", "limit 必须是正整数", limit)
		}
		req.Limit = n
	}

	useCache, err := singleQuery(q, "cache")
	if err != nil {
		return merge.Request{}, err
	}
	if useCache = strings.TrimSpace(useCache); useCache != "" {
		b, err := strconv.ParseBool(useCache)
		if err != nil {
			return merge.Request{}, requestError("INVALID_ARGUMENT", "cache 只能是 true/false", useCache)
		}
		req.NoCache = !b
	}
	return req, nil
}

// rawValues reads every key=value pair from the raw query and unescapes the
// values without turning '+' into a space, so inline base64 survives.
func rawValues(rawQuery, key string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(rawQuery, "&") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k != key {
			continue
		}
		d, err := url.PathUnescape(v)
		if err != nil {
			return nil, requestError("INVALID_ARGUMENT", fmt.Sprintf("%s 参数编码不合法", key), err.Error())
		}
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out, nil
}

func singleQuery(q url.Values, key string) (string, error) {
	values, ok := q[key]
	if !ok || len(values) == 0 {
		return "", nil
	}
	if len(values) != 1 {
		return "", requestError("INVALID_ARGUMENT", fmt.Sprintf("%s 参数只能出现一次", key), "")
	}
	return values[0], nil
}

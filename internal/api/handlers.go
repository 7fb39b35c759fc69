package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/pipeline"
	"whale-index-lab/internal/service"
)

type computeFunc func(ctx context.Context) (any, error)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorDTO{Error: msg})
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var ve *validationError
	switch {
	case errors.As(err, &ve), errors.Is(err, domain.ErrMalformedSeries):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoData), errors.Is(err, domain.ErrInsufficientData):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

// respond encodes the result of compute. With a cache configured the
// encoded body is shared per engine run and canonical query.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, compute computeFunc) {
	body, err := s.render(r, compute)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) render(r *http.Request, compute computeFunc) ([]byte, error) {
	ctx := r.Context()
	encode := func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		return append(data, '\n'), nil
	}
	if s.cache == nil {
		return encode(ctx)
	}

	cur, err := s.svc.Current(ctx)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d:%s?%s", cur.ComputedAt.UnixMilli(), r.URL.Path, r.URL.Query().Encode())
	return s.cache.Do(ctx, key, encode)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	out := healthDTO{
		Status:    "healthy",
		Service:   s.name,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
	cur, err := s.svc.Current(r.Context())
	if err != nil {
		out.Status = "unavailable"
		out.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, out)
		return
	}
	out.DataVersion = cur.DataVersion
	out.ComputedAt = cur.ComputedAt.UTC().Format(time.RFC3339)
	out.Days = len(cur.Series)
	out.Sufficiency = newSufficiency(cur.Sufficiency)
	writeJSON(w, http.StatusOK, out)
}

// index lists every registered route.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	var paths []string
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if route.GetHandler() == nil {
			return nil // subrouter mount
		}
		if tpl, err := route.GetPathTemplate(); err == nil {
			paths = append(paths, tpl)
		}
		return nil
	})
	sort.Strings(paths)
	writeJSON(w, http.StatusOK, indexDTO{
		Name:        s.name,
		Version:     pipeline.GeneratorVersion,
		Description: "Whale Activity Index and Whale Intent Index service",
		Endpoints:   paths,
	})
}

func (s *Server) formula(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newFormula(s.svc.EngineConfig()))
}

func (s *Server) activityLatest(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func(ctx context.Context) (any, error) {
		d, err := s.svc.Latest(ctx)
		if err != nil {
			return nil, err
		}
		return newDay(d), nil
	})
}

func (s *Server) activityHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistory(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		series, err := s.svc.History(ctx, q)
		if err != nil {
			return nil, err
		}
		return historyDTO{Count: len(series), Data: newDays(series)}, nil
	})
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		st, err := s.svc.Statistics(ctx, rng)
		if err != nil {
			return nil, err
		}
		return newStatistics(st), nil
	})
}

func (s *Server) comparison(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		c, err := s.svc.Comparison(ctx, rng)
		if err != nil {
			return nil, err
		}
		return newComparison(c), nil
	})
}

func (s *Server) intentLatest(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func(ctx context.Context) (any, error) {
		d, err := s.svc.Latest(ctx)
		if err != nil {
			return nil, err
		}
		return intentLatestDTO{intentDayDTO: newIntentDay(d), Interpretation: intentInterpretation}, nil
	})
}

func (s *Server) intentHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistory(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		series, err := s.svc.History(ctx, q)
		if err != nil {
			return nil, err
		}
		return newIntentHistory(series), nil
	})
}

func (s *Server) momentum(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistory(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		series, err := s.svc.History(ctx, q)
		if err != nil {
			return nil, err
		}
		return newMomentumHistory(series), nil
	})
}

func (s *Server) confidence(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistory(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		series, err := s.svc.History(ctx, q)
		if err != nil {
			return nil, err
		}
		return newConfidenceHistory(series), nil
	})
}

func (s *Server) backtest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseRange(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	horizon, err := parseInt(q, "horizon", 1, MaxHorizon)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		rep, err := s.svc.Backtest(ctx, rng, horizon)
		if err != nil {
			return nil, err
		}
		return newBacktest(rep), nil
	})
}

func (s *Server) leadLag(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseRange(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	maxLag, err := parseInt(q, "max_lag", 1, MaxLag)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		rep, err := s.svc.LeadLag(ctx, rng, maxLag)
		if err != nil {
			return nil, err
		}
		return newLeadLag(rep), nil
	})
}

func (s *Server) regimes(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		rep, err := s.svc.Regimes(ctx, rng)
		if err != nil {
			return nil, err
		}
		return newRegimes(rep), nil
	})
}

func (s *Server) volatility(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		rep, err := s.svc.Volatility(ctx, rng)
		if err != nil {
			return nil, err
		}
		return newVolatility(rep), nil
	})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context) (any, error) {
		sum, err := s.svc.Summary(ctx, rng)
		if err != nil {
			return nil, err
		}
		return newSummary(sum), nil
	})
}

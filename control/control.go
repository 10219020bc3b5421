// Package control exposes the engine over a small HTTP admin surface so
// operators and local tooling can query scores without linking the library.
package control

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	participation "github.com/OmniBazaar/participation"
	"github.com/OmniBazaar/participation/ledger"
	"github.com/OmniBazaar/participation/score"
)

const (
	scorePath       = "/admin/score/"
	leaderboardPath = "/admin/leaderboard"
	validatorPath   = "/admin/validator/"
	listingNodePath = "/admin/listing-node/"
	reportPath      = "/admin/report"
)

// StartAdminServer blocks serving the admin surface on the given port.
func StartAdminServer(engine *participation.Engine, port int, log *zap.SugaredLogger) error {
	log.Infof("Starting admin server on port %d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), NewHandler(engine, log))
}

// NewHandler builds the admin routes against the engine.
func NewHandler(engine *participation.Engine, log *zap.SugaredLogger) http.Handler {
	s := &server{engine, log}
	mux := http.NewServeMux()
	mux.HandleFunc(scorePath, s.getScore)
	mux.HandleFunc(leaderboardPath, s.getLeaderboard)
	mux.HandleFunc(validatorPath, s.checkValidator)
	mux.HandleFunc(listingNodePath, s.checkListingNode)
	mux.HandleFunc(reportPath, s.reportActivity)
	return mux
}

type server struct {
	engine *participation.Engine
	log    *zap.SugaredLogger
}

type badResp struct {
	Err    string `json:"err"`
	Detail string `json:"detail"`
}

func (s *server) getScore(w http.ResponseWriter, r *http.Request) {
	address, ok := s.requireAddress(w, r, scorePath)
	if !ok {
		return
	}
	s.writeResponse(w, http.StatusOK, nil, s.engine.Score(r.Context(), address))
}

func (s *server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeResponse(w, http.StatusMethodNotAllowed, map[string]string{"Allow": "GET"}, nil)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeResponse(w, http.StatusUnprocessableEntity, nil, badResp{fmt.Sprintf("invalid limit: %s", raw), "limit must be a non-negative integer."})
			return
		}
		limit = parsed
	}
	s.writeResponse(w, http.StatusOK, nil, s.engine.Leaderboard(r.Context(), limit))
}

func (s *server) checkValidator(w http.ResponseWriter, r *http.Request) {
	address, ok := s.requireAddress(w, r, validatorPath)
	if !ok {
		return
	}
	s.writeResponse(w, http.StatusOK, nil, s.engine.CheckValidatorQualification(r.Context(), address))
}

func (s *server) checkListingNode(w http.ResponseWriter, r *http.Request) {
	address, ok := s.requireAddress(w, r, listingNodePath)
	if !ok {
		return
	}
	s.writeResponse(w, http.StatusOK, nil, s.engine.CheckListingNodeQualification(r.Context(), address))
}

type reportRequest struct {
	Address   string `json:"address"`
	Component string `json:"component"`
	Detail    string `json:"detail"`
	Amount    string `json:"amount"`
	Target    string `json:"target"`
}

func (s *server) reportActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeResponse(w, http.StatusMethodNotAllowed, map[string]string{"Allow": "POST"}, nil)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeResponse(w, http.StatusInternalServerError, nil, badResp{err.Error(), "Failed to read request body."})
		return
	}

	var req reportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.writeResponse(w, http.StatusUnprocessableEntity, nil, badResp{err.Error(), "Invalid body format."})
		return
	}
	if req.Address == "" {
		s.writeResponse(w, http.StatusUnprocessableEntity, nil, badResp{"missing address", "An address is required."})
		return
	}

	event, err := buildEvent(req)
	if err != nil {
		s.writeResponse(w, http.StatusUnprocessableEntity, nil, badResp{err.Error(), "Unrecognized component."})
		return
	}

	updated, err := s.engine.ReportActivity(r.Context(), score.Address(req.Address), event)
	if err != nil {
		s.writeResponse(w, http.StatusBadGateway, nil, badResp{err.Error(), "Failed to record the activity."})
		return
	}
	s.writeResponse(w, http.StatusOK, nil, updated)
}

// buildEvent maps the component and detail fields onto the typed event for
// that component. detail is the new-user address for referrals, the listing
// hash for publishing, and the activity kind for the remaining components.
func buildEvent(req reportRequest) (ledger.Event, error) {
	switch ledger.Component(req.Component) {
	case ledger.ComponentReferrals:
		return ledger.ReferralEvent{NewUser: score.Address(req.Detail)}, nil
	case ledger.ComponentPublishing:
		return ledger.PublishingEvent{ListingHash: req.Detail}, nil
	case ledger.ComponentForum:
		return ledger.ForumEvent{Kind: ledger.ForumActivityKind(req.Detail)}, nil
	case ledger.ComponentMarketplace:
		return ledger.MarketplaceEvent{Kind: ledger.MarketplaceActivityKind(req.Detail), Amount: req.Amount}, nil
	case ledger.ComponentPolicing:
		return ledger.PolicingEvent{Kind: ledger.PolicingActivityKind(req.Detail), Target: score.Address(req.Target)}, nil
	case ledger.ComponentReliability:
		return ledger.ReliabilityEvent{Kind: ledger.ReliabilityActivityKind(req.Detail)}, nil
	default:
		return nil, fmt.Errorf("unrecognized component: %s", req.Component)
	}
}

func (s *server) requireAddress(w http.ResponseWriter, r *http.Request, prefix string) (score.Address, bool) {
	if r.Method != http.MethodGet {
		s.writeResponse(w, http.StatusMethodNotAllowed, map[string]string{"Allow": "GET"}, nil)
		return "", false
	}
	address := strings.TrimPrefix(r.URL.Path, prefix)
	if address == "" || strings.Contains(address, "/") {
		s.writeResponse(w, http.StatusNotFound, nil, badResp{"missing address", "An address path segment is required."})
		return "", false
	}
	return score.Address(address), true
}

func (s *server) writeResponse(w http.ResponseWriter, status int, headers map[string]string, jsonBody interface{}) {
	for k, v := range headers {
		w.Header().Add(k, v)
	}
	if jsonBody != nil {
		w.Header().Add("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if jsonBody != nil {
		m, err := json.Marshal(jsonBody)
		if err != nil {
			s.log.Errorf("Failed to serialize body: %s", err)
			return
		}
		if _, err := w.Write(m); err != nil {
			s.log.Errorf("Failed to write body: %s", err)
		}
	}
}

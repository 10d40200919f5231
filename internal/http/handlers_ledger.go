package http

import (
	"net/http"

	"grana/internal/core"
	"grana/internal/ledger"
)

type createEntryRequest struct {
	Title       string  `json:"title"`
	Amount      string  `json:"amount"`
	Description *string `json:"description"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
}

type updateEntryRequest struct {
	Title       string  `json:"title"`
	Amount      string  `json:"amount"`
	Description *string `json:"description"`
}

type deleteBatchRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleCreate(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEntryRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		e, err := s.ledger.Create(r.Context(), kind, ledger.CreateInput{
			Title:       req.Title,
			Amount:      req.Amount,
			Description: req.Description,
			Date:        req.Date,
			Time:        req.Time,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusCreated, e)
	}
}

func (s *Server) handleList(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.ledger.List(r.Context(), kind)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, entries)
	}
}

func (s *Server) handleDeleteBatch(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteBatchRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		deleted, err := s.ledger.DeleteBatch(r.Context(), kind, req.IDs)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondDeleted(w, deleted)
	}
}

func (s *Server) handleUpdate(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateEntryRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		e, err := s.ledger.Update(r.Context(), kind, r.PathValue("id"), ledger.UpdateInput{
			Title:       req.Title,
			Amount:      req.Amount,
			Description: req.Description,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, e)
	}
}

func (s *Server) handleRegister(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := s.ledger.Register(r.Context(), kind, r.PathValue("id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusCreated, e)
	}
}

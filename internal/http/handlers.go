package http

import (
	"context"
	"net/http"

	"pagamentos/internal/core"
	"pagamentos/internal/ledger"
	"pagamentos/internal/log"
	"pagamentos/internal/transfer"
)

// editableFields are applied in this order when a POST or PATCH carries several.
var editableFields = []ledger.Field{
	ledger.FieldAccount,
	ledger.FieldCategory,
	ledger.FieldKind,
	ledger.FieldDueDate,
	ledger.FieldAmount,
	ledger.FieldBank,
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string][]string{"months": s.svc.Months()}).Write(w)
}

func (s *Server) handleOpenMonth(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	view, err := s.svc.OpenMonth(r.Context(), k, ParseFilter(q), ParseSort(q))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleGenerateNext(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.GenerateNext(r.Context(), k)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.svc.AddRecord(r.Context(), k, p.Edits(editableFields)...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(rec).Write(w)
}

func (s *Server) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}

	edits := p.Edits(editableFields)
	if len(edits) == 0 {
		writeError(w, r, &core.ValidationError{Field: "body", Err: core.ErrUnknownField})
		return
	}
	rec, err := s.svc.EditFields(r.Context(), k, r.PathValue("id"), edits)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(rec).Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteRecord(r.Context(), k, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDuplicateRecord(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.svc.DuplicateRecord(r.Context(), k, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(rec).Write(w)
}

func (s *Server) handleRegisterPayment(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := p.Amount("amount")
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.RegisterPayment(r.Context(), k, r.PathValue("id"), p.Get("bank"), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(res).Write(w)
}

func (s *Server) handleReversePayment(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.svc.ReversePayment(r.Context(), k, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(rec).Write(w)
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := p.SignedAmount("amount")
	if err != nil {
		writeError(w, r, err)
		return
	}

	bank := sanitizeInput(r.PathValue("bank"))
	if err := s.svc.SetOpeningBalance(r.Context(), k, bank, amount); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]any{"bank": bank, "opening": amount}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.svc.Summary(r.Context(), k)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(summary).Write(w)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trend, err := s.svc.Trend(r.Context(), k, ParsePositiveInt(r.URL.Query(), "months"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(trend).Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestBodyParser(r)
	if p.err != nil {
		writeError(w, r, &core.ParseError{Err: p.err})
		return
	}

	mode := ledger.ParseImportMode(r.URL.Query().Get("mode"))
	n, err := s.svc.Import(r.Context(), k, p.GetRaw(), mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]any{"imported": n, "mode": mode}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	k, err := ParseMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format := transfer.ParseFormat(r.URL.Query().Get("format"))
	body, contentType, filename, err := s.svc.Export(r.Context(), k, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Exported month",
		log.FieldOperation, log.OpExport,
		log.FieldYear, k.Year,
		log.FieldMonth, k.Month)
	NewResponse().
		Header("Content-Type", contentType).
		Attachment(filename).
		Body(body).
		Write(w)
}

func (s *Server) handleListBanks(w http.ResponseWriter, r *http.Request) {
	banks, _, err := s.svc.Names(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string][]string{"banks": banks}).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	_, categories, err := s.svc.Names(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string][]string{"categories": categories}).Write(w)
}

func (s *Server) handleAddName(add func(ctx context.Context, name string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			writeError(w, r, err)
			return
		}
		name := p.Get("name")
		if err := add(r.Context(), name); err != nil {
			writeError(w, r, err)
			return
		}
		NewResponse().Status(http.StatusCreated).JSON(map[string]string{"name": name}).Write(w)
	}
}

func (s *Server) handleRemoveName(remove func(ctx context.Context, name string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := remove(r.Context(), sanitizeInput(r.PathValue("name"))); err != nil {
			writeError(w, r, err)
			return
		}
		NewResponse().Status(http.StatusNoContent).Write(w)
	}
}

package projects

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
)

const maxDocumentBytes = 25 << 20

var documentTypes = []string{"contrato", "anexo", "acta", "factura", "otro"}

func (h *Handler) contract(w http.ResponseWriter, r *http.Request) {
	project, ok := h.withProject(w, r, "Contrato")
	if !ok {
		return
	}
	ctx := r.Context()
	var (
		g                          errgroup.Group
		contracts, documents       []pactum.Document
		contractsErr, documentsErr error
	)
	g.Go(func() error {
		contracts, contractsErr = h.api.ListContracts(ctx, project.ID)
		return nil
	})
	g.Go(func() error {
		documents, documentsErr = h.api.ListProjectDocuments(ctx, project.ID)
		return nil
	})
	_ = g.Wait()
	h.pages.Warn(r, contractsErr)
	h.pages.Warn(r, documentsErr)

	h.pages.HTML(w, r, http.StatusOK, "pages/contract.html", "Contrato", map[string]any{
		"Project":       project,
		"Contracts":     contracts,
		"Documents":     documents,
		"DocumentTypes": documentTypes,
		"Admin":         isAdmin(r),
		"Selector":      h.selector(r),
	})
}

func (h *Handler) uploadContract(w http.ResponseWriter, r *http.Request) {
	project, ok, err := h.current(r.Context(), r)
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathContract)
		return
	}
	if !ok {
		h.pages.Flash(r, "error", "Selecciona un proyecto primero")
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	if err := r.ParseMultipartForm(maxDocumentBytes); err != nil {
		h.pages.Flash(r, "error", "Selecciona un archivo PDF")
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.pages.Flash(r, "error", "Selecciona un archivo PDF")
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	defer file.Close()
	if !strings.EqualFold(strings.TrimPrefix(extension(header.Filename), "."), "pdf") {
		h.pages.Flash(r, "error", "El contrato debe ser un archivo PDF")
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	if _, err := h.api.UploadContract(r.Context(), project.ID, header.Filename, file); err != nil {
		h.pages.Fail(w, r, err, rbac.PathContract)
		return
	}
	h.pages.Flash(r, "success", "Contrato cargado")
	h.pages.Redirect(w, r, rbac.PathContract)
}

func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	project, ok, err := h.current(r.Context(), r)
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathContract)
		return
	}
	if !ok {
		h.pages.Flash(r, "error", "Selecciona un proyecto primero")
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	if err := r.ParseMultipartForm(maxDocumentBytes); err != nil {
		h.pages.Flash(r, "error", "Selecciona un archivo")
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.pages.Flash(r, "error", "Selecciona un archivo")
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	defer file.Close()
	docType := r.FormValue("document_type")
	if docType == "" {
		docType = "otro"
	}
	if _, err := h.api.UploadProjectDocument(r.Context(), project.ID, docType, header.Filename, file); err != nil {
		h.pages.Fail(w, r, err, rbac.PathContract)
		return
	}
	h.pages.Flash(r, "success", "Documento cargado")
	h.pages.Redirect(w, r, rbac.PathContract)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		h.pages.Flash(r, "error", "No tienes permisos para esta acción")
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	project, ok, err := h.current(r.Context(), r)
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathContract)
		return
	}
	if !ok {
		h.pages.Redirect(w, r, rbac.PathContract)
		return
	}
	if err := h.api.DeleteProjectDocument(r.Context(), project.ID, chi.URLParam(r, "id")); err != nil {
		h.pages.Fail(w, r, err, rbac.PathContract)
		return
	}
	h.pages.Flash(r, "success", "Documento eliminado")
	h.pages.Redirect(w, r, rbac.PathContract)
}

func extension(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return filename[i:]
	}
	return ""
}

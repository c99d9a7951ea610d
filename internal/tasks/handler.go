package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/pactum-saas/pactum-web/internal/auth"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/platform/httpx"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

const maxUploadBytes = 25 << 20

// API is the slice of the Pactum API used by task pages.
type API interface {
	Lister
	CreateTask(ctx context.Context, in pactum.TaskInput) (pactum.Task, error)
	UpdateTask(ctx context.Context, id string, in pactum.TaskInput) (pactum.Task, error)
	MoveTask(ctx context.Context, id, status string) error
	DeleteTask(ctx context.Context, id string) error
	ReassignTask(ctx context.Context, id string, in pactum.ReassignInput) error
	ListTaskComments(ctx context.Context, taskID string) ([]pactum.Comment, error)
	AddTaskComment(ctx context.Context, taskID, text string, audio *pactum.FilePart) error
	ListTaskAttachments(ctx context.Context, taskID string) ([]pactum.Attachment, error)
	UploadTaskAttachment(ctx context.Context, taskID, filename string, content io.Reader) (pactum.Attachment, error)
	DeleteTaskAttachment(ctx context.Context, taskID, attachmentID string) error
	ListProjects(ctx context.Context) ([]pactum.Project, error)
	ListAssignableUsers(ctx context.Context) ([]pactum.CompanyUser, error)
}

// Handler serves /tareas and /kanban.
type Handler struct {
	logger    *slog.Logger
	api       API
	board     *Board
	pages     *view.Pages
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api API, board *Board, pages *view.Pages) *Handler {
	return &Handler{logger: logger, api: api, board: board, pages: pages, validator: validator.New()}
}

// MountRoutes registers task and board routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.PathTasks, h.list)
	r.Post(rbac.PathTasks, h.create)
	r.Get(rbac.PathTasks+"/{id}", h.show)
	r.Post(rbac.PathTasks+"/{id}", h.update)
	r.Post(rbac.PathTasks+"/{id}/eliminar", h.delete)
	r.Post(rbac.PathTasks+"/{id}/reasignar", h.reassign)
	r.Post(rbac.PathTasks+"/{id}/comentarios", h.comment)
	r.Post(rbac.PathTasks+"/{id}/adjuntos", h.attach)
	r.Post(rbac.PathTasks+"/{id}/adjuntos/{attachmentID}/eliminar", h.detach)
	r.Get(rbac.PathKanban, h.kanban)
	r.Post(rbac.PathKanban+"/{id}/estado", h.move)
}

// MountStream registers the long-lived board stream. It must not sit behind
// the request timeout.
func (h *Handler) MountStream(r chi.Router) {
	r.Get(rbac.PathKanban+"/stream", h.stream)
}

type taskForm struct {
	ProjectID      string  `validate:"required"`
	Title          string  `validate:"required,min=3,max=200"`
	Description    string  `validate:"max=2000"`
	Status         string  `validate:"omitempty,oneof=backlog todo in_progress review done"`
	Priority       string  `validate:"required,oneof=low medium high urgent"`
	AssignedTo     string
	EstimatedHours float64 `validate:"gte=0"`
	DueDate        string
	TechnicalNotes string
}

func parseTaskForm(r *http.Request) taskForm {
	hours, _ := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue("estimated_hours")), 64)
	return taskForm{
		ProjectID:      strings.TrimSpace(r.PostFormValue("project_id")),
		Title:          strings.TrimSpace(r.PostFormValue("title")),
		Description:    strings.TrimSpace(r.PostFormValue("description")),
		Status:         r.PostFormValue("status"),
		Priority:       r.PostFormValue("priority"),
		AssignedTo:     r.PostFormValue("assigned_to"),
		EstimatedHours: hours,
		DueDate:        r.PostFormValue("due_date"),
		TechnicalNotes: strings.TrimSpace(r.PostFormValue("technical_notes")),
	}
}

func (f taskForm) input() pactum.TaskInput {
	return pactum.TaskInput{
		ProjectID:      f.ProjectID,
		Title:          f.Title,
		Description:    f.Description,
		Status:         f.Status,
		Priority:       f.Priority,
		AssignedTo:     f.AssignedTo,
		EstimatedHours: f.EstimatedHours,
		DueDate:        f.DueDate,
		TechnicalNotes: f.TechnicalNotes,
	}
}

// viewer resolves whose tasks the request shows. Team members see their own
// assignments unless they ask for the whole project.
func (h *Handler) viewer(r *http.Request) Viewer {
	var v Viewer
	if store := auth.StoreFromContext(r.Context()); store != nil {
		v.Scope = store.SessionID()
		v.ProjectID = store.ProjectScope().ProjectID
	}
	if id := shared.IdentityFromContext(r.Context()); id != nil && id.Role == shared.RoleTeamMember {
		if r.URL.Query().Get("todas") != "1" {
			v.AssignedTo = id.ID
		}
	}
	return v
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	form := taskForm{Priority: "medium", ProjectID: h.viewer(r).ProjectID}
	h.renderList(w, r, http.StatusOK, form, nil)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, status int, form taskForm, errs map[string]string) {
	ctx := r.Context()
	v := h.viewer(r)
	filter := pactum.TaskFilter{ProjectID: v.ProjectID}
	if week, err := strconv.Atoi(r.URL.Query().Get("semana")); err == nil && week > 0 {
		filter.Week = week
	}
	admin := shared.IdentityFromContext(ctx).HasRole(shared.RoleCompanyAdmin)

	var (
		g                               errgroup.Group
		tasks                           []pactum.Task
		projects                        []pactum.Project
		users                           []pactum.CompanyUser
		tasksErr, projectsErr, usersErr error
	)
	g.Go(func() error {
		tasks, tasksErr = h.api.ListTasks(ctx, filter)
		return nil
	})
	g.Go(func() error {
		projects, projectsErr = h.api.ListProjects(ctx)
		return nil
	})
	if admin {
		g.Go(func() error {
			users, usersErr = h.api.ListAssignableUsers(ctx)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range []error{tasksErr, projectsErr, usersErr} {
		h.pages.Warn(r, err)
	}

	mine := tasks[:0:0]
	for _, task := range tasks {
		if v.AssignedTo == "" || task.AssignedTo == v.AssignedTo {
			mine = append(mine, task)
		}
	}

	h.pages.HTML(w, r, status, "pages/tasks.html", "Tareas", map[string]any{
		"Tasks":    mine,
		"Projects": projects,
		"Users":    users,
		"OnlyMine": v.AssignedTo != "",
		"Week":     filter.Week,
		"Statuses": pactum.TaskStatuses,
		"Form":     form,
		"Errors":   errs,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseTaskForm(r)
	if form.Status == "" {
		form.Status = pactum.StatusBacklog
	}
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.renderList(w, r, http.StatusBadRequest, form, errs)
		return
	}
	task, err := h.api.CreateTask(r.Context(), form.input())
	if err != nil {
		if status, msg, ok := h.pages.Retry(w, r, err); ok {
			h.renderList(w, r, status, form, map[string]string{"general": msg})
		}
		return
	}
	h.logger.Info("task created", slog.String("task_id", task.ID), slog.String("project_id", task.ProjectID))
	h.pages.Flash(r, "success", "Tarea creada")
	h.pages.Redirect(w, r, rbac.PathTasks)
}

func (h *Handler) find(ctx context.Context, v Viewer, id string) (pactum.Task, bool, error) {
	tasks, err := h.api.ListTasks(ctx, pactum.TaskFilter{ProjectID: v.ProjectID})
	if err != nil {
		return pactum.Task{}, false, err
	}
	for _, task := range tasks {
		if task.ID == id {
			return task, true, nil
		}
	}
	return pactum.Task{}, false, nil
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	task, ok, err := h.find(ctx, h.viewer(r), id)
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathTasks)
		return
	}
	if !ok {
		h.pages.Flash(r, "error", pactum.MsgNotFound)
		h.pages.Redirect(w, r, rbac.PathTasks)
		return
	}

	var (
		g                     errgroup.Group
		comments              []pactum.Comment
		attachments           []pactum.Attachment
		users                 []pactum.CompanyUser
		commentsErr, filesErr error
	)
	g.Go(func() error {
		comments, commentsErr = h.api.ListTaskComments(ctx, id)
		return nil
	})
	g.Go(func() error {
		attachments, filesErr = h.api.ListTaskAttachments(ctx, id)
		return nil
	})
	if shared.IdentityFromContext(ctx).HasRole(shared.RoleCompanyAdmin) {
		g.Go(func() error {
			var err error
			if users, err = h.api.ListAssignableUsers(ctx); err != nil {
				h.logger.Debug("list assignable users", slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	h.pages.Warn(r, commentsErr)
	h.pages.Warn(r, filesErr)

	h.pages.HTML(w, r, http.StatusOK, "pages/task_detail.html", task.Title, map[string]any{
		"Task":        task,
		"Comments":    comments,
		"Attachments": attachments,
		"Users":       users,
		"Statuses":    pactum.TaskStatuses,
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	back := rbac.PathTasks + "/" + id
	form := parseTaskForm(r)
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.pages.Flash(r, "error", view.FirstError(errs))
		h.pages.Redirect(w, r, back)
		return
	}
	if _, err := h.api.UpdateTask(r.Context(), id, form.input()); err != nil {
		h.pages.Fail(w, r, err, back)
		return
	}
	h.pages.Flash(r, "success", "Tarea actualizada")
	h.pages.Redirect(w, r, back)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if err := h.api.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.pages.Fail(w, r, err, rbac.PathTasks)
		return
	}
	h.pages.Flash(r, "success", "Tarea eliminada")
	h.pages.Redirect(w, r, rbac.PathTasks)
}

type reassignForm struct {
	NewAssignedTo string `validate:"required"`
	Reason        string `validate:"required,min=5,max=500"`
}

func (h *Handler) reassign(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	back := rbac.PathTasks + "/" + id
	form := reassignForm{
		NewAssignedTo: r.PostFormValue("new_assigned_to"),
		Reason:        strings.TrimSpace(r.PostFormValue("reason")),
	}
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.pages.Flash(r, "error", view.FirstError(errs))
		h.pages.Redirect(w, r, back)
		return
	}
	err := h.api.ReassignTask(r.Context(), id, pactum.ReassignInput{NewAssignedTo: form.NewAssignedTo, Reason: form.Reason})
	if err != nil {
		h.pages.Fail(w, r, err, back)
		return
	}
	h.pages.Flash(r, "success", "Tarea reasignada")
	h.pages.Redirect(w, r, back)
}

func (h *Handler) comment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := rbac.PathTasks + "/" + id
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.pages.Flash(r, "error", "El archivo es demasiado grande")
		h.pages.Redirect(w, r, back)
		return
	}
	text := strings.TrimSpace(r.FormValue("text"))
	var audio *pactum.FilePart
	if file, header, err := r.FormFile("audio"); err == nil {
		defer file.Close()
		audio = &pactum.FilePart{Field: "audio", Filename: header.Filename, Content: file}
	}
	if text == "" && audio == nil {
		h.pages.Flash(r, "error", "Escribe un comentario o adjunta un audio")
		h.pages.Redirect(w, r, back)
		return
	}
	if err := h.api.AddTaskComment(r.Context(), id, text, audio); err != nil {
		h.pages.Fail(w, r, err, back)
		return
	}
	h.pages.Flash(r, "success", "Comentario agregado")
	h.pages.Redirect(w, r, back)
}

func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := rbac.PathTasks + "/" + id
	file, header, err := formFile(r, "file")
	if err != nil {
		h.pages.Flash(r, "error", "Selecciona un archivo")
		h.pages.Redirect(w, r, back)
		return
	}
	defer file.Close()
	if _, err := h.api.UploadTaskAttachment(r.Context(), id, header.Filename, file); err != nil {
		h.pages.Fail(w, r, err, back)
		return
	}
	h.pages.Flash(r, "success", "Archivo adjuntado")
	h.pages.Redirect(w, r, back)
}

func (h *Handler) detach(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := rbac.PathTasks + "/" + id
	if err := h.api.DeleteTaskAttachment(r.Context(), id, chi.URLParam(r, "attachmentID")); err != nil {
		h.pages.Fail(w, r, err, back)
		return
	}
	h.pages.Flash(r, "success", "Adjunto eliminado")
	h.pages.Redirect(w, r, back)
}

func (h *Handler) kanban(w http.ResponseWriter, r *http.Request) {
	v := h.viewer(r)
	tasks, err := h.api.ListTasks(r.Context(), pactum.TaskFilter{ProjectID: v.ProjectID})
	board := BoardView{ProjectID: v.ProjectID, Columns: Group(tasks, v.AssignedTo)}
	if err != nil && h.pages.Warn(r, err) {
		board.Message = pactum.UserMessage(err)
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/kanban.html", "Tablero Kanban", map[string]any{
		"Board":    board,
		"OnlyMine": v.AssignedTo != "",
	})
}

// stream mounts a Board for the lifetime of the connection and pushes every
// fresh rendering as an HTML fragment.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	v := h.viewer(r)
	if v.Scope == "" {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	stream, err := httpx.NewEventStream(w)
	if err != nil {
		h.logger.Error("open board stream", slog.Any("error", err))
		return
	}
	var buf bytes.Buffer
	err = h.board.Mount(r.Context(), v, func(board BoardView) error {
		buf.Reset()
		if err := h.pages.Engine.Fragment(&buf, "partials/kanban_board", board); err != nil {
			return err
		}
		return stream.SendHTML("board", buf.Bytes())
	})
	switch {
	case err == nil:
	case errors.Is(err, pactum.ErrAuthenticationExpired):
		_ = stream.Send("logout", map[string]string{"location": rbac.PathLogin})
	default:
		h.logger.Debug("board stream closed", slog.Any("error", err))
	}
}

type moveRequest struct {
	Status string `json:"status"`
}

// move answers the board's drag-and-drop calls with JSON.
func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "JSON inválido")
			return
		}
	} else {
		req.Status = r.PostFormValue("status")
	}
	if !slices.Contains(pactum.TaskStatuses, req.Status) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Estado inválido")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.api.MoveTask(r.Context(), id, req.Status); err != nil {
		h.logger.Warn("move task", slog.String("task_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if shared.IdentityFromContext(r.Context()).HasRole(shared.RoleCompanyAdmin) {
		return true
	}
	h.pages.Flash(r, "error", "No tienes permisos para esta acción")
	h.pages.Redirect(w, r, rbac.PathTasks)
	return false
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, err
	}
	return r.FormFile(field)
}

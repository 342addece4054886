package endpoint

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capstone/board-back/pkg/boardservice"
	"github.com/capstone/board-back/pkg/types"
)

type HttpEndpoint struct {
	router  *mux.Router
	service boardservice.Service
	logger  log.Logger
}

// BoardResponse is the JSON representation of a board.
type BoardResponse struct {
	BoardNumber   int64  `json:"boardNumber"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	WriteDatetime string `json:"writeDatetime"`
	FavoriteCount int    `json:"favoriteCount"`
	CommentCount  int    `json:"commentCount"`
	ViewCount     int    `json:"viewCount"`
	WriterEmail   string `json:"writerEmail"`
}

type ListResponse struct {
	Boards []BoardResponse `json:"boards"`
	Next   string          `json:"next,omitempty"`
}

func NewBoardResponse(board types.Board) BoardResponse {
	return BoardResponse{
		BoardNumber:   board.Number(),
		Title:         board.Title(),
		Content:       board.Content(),
		WriteDatetime: board.WriteDatetime(),
		FavoriteCount: board.FavoriteCount(),
		CommentCount:  board.CommentCount(),
		ViewCount:     board.ViewCount(),
		WriterEmail:   board.WriterEmail(),
	}
}

// Type assertion
var _ http.Handler = &HttpEndpoint{}

// NewHttpEndpoint builds the HTTP API. users maps the emails of the users
// allowed to write to their password. HTTP metrics are registered on
// registry and exposed on /metrics.
func NewHttpEndpoint(logger log.Logger, service boardservice.Service, users map[string]string, registry *prometheus.Registry) *HttpEndpoint {
	logger = log.With(logger, "module", "http")

	endpoint := &HttpEndpoint{
		router:  mux.NewRouter(),
		service: service,
		logger:  logger,
	}

	metrics := NewMetrics(registry)

	authenticator := BasicAuthenticator{
		Users: users,
	}

	public := func(handler http.HandlerFunc) http.Handler {
		return WithLogging(logger, WithMetrics(metrics, handler))
	}

	private := func(handler http.HandlerFunc) http.Handler {
		return public(WithAuthentication(&authenticator, handler).ServeHTTP)
	}

	privateJSON := func(handler http.HandlerFunc) http.Handler {
		return private(WithContentType(JsonContentType, handler).ServeHTTP)
	}

	const boardPath = "/board/{number:[0-9]+}"

	r := endpoint.router

	r.Methods("GET").Path("/board").Handler(public(endpoint.handleList))
	r.Methods("POST").Path("/board").Handler(privateJSON(endpoint.handlePost))
	r.Methods("GET").Path(boardPath).Handler(public(endpoint.handleGet))
	r.Methods("PATCH").Path(boardPath).Handler(privateJSON(endpoint.handlePatch))
	r.Methods("DELETE").Path(boardPath).Handler(private(endpoint.handleDelete))

	r.Methods("PUT").Path(boardPath + "/favorite").Handler(private(endpoint.counterHandler(service.Favorite)))
	r.Methods("DELETE").Path(boardPath + "/favorite").Handler(private(endpoint.counterHandler(service.Unfavorite)))
	r.Methods("POST").Path(boardPath + "/comment").Handler(private(endpoint.counterHandler(service.AddComment)))
	r.Methods("DELETE").Path(boardPath + "/comment").Handler(private(endpoint.counterHandler(service.RemoveComment)))

	r.Methods("GET").Path("/health").Handler(WithLogging(logger, http.HandlerFunc(endpoint.handleHealth)))
	r.Methods("GET").Path("/metrics").Handler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return endpoint
}

func (e *HttpEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.router.ServeHTTP(w, r)
}

// writeError logs internal errors before writing err to the response.
func (e *HttpEndpoint) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if !boardservice.IsUserError(err) {
		e.logger.Log("event", "internal_error", "url", r.URL.String(), "error", err)
	}

	WriteError(w, err)
}

func writeBoard(w http.ResponseWriter, statusCode int, board types.Board) {
	w.Header().Set("Content-Type", JsonContentType)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(NewBoardResponse(board))
}

func boardNumber(r *http.Request) (int64, bool) {
	number, err := strconv.ParseInt(mux.Vars(r)["number"], 10, 64)

	if err != nil || number <= 0 {
		return 0, false
	}

	return number, true
}

// MaxBodySize caps the size of request bodies. A board content at its
// maximum length fits with room for multi-byte characters and escaping.
const MaxBodySize = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, body interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	err := json.NewDecoder(r.Body).Decode(body)

	if _, tooLarge := err.(*http.MaxBytesError); tooLarge {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		io.WriteString(w, "Request body too large")
		return false
	}

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "Malformed JSON input")
		return false
	}

	return true
}

func (e *HttpEndpoint) handlePost(w http.ResponseWriter, r *http.Request) {
	var req types.PostBoardRequest

	if !decodeBody(w, r, &req) {
		return
	}

	board, err := e.service.Post(req, Identity(r))

	if err != nil {
		e.writeError(w, r, errors.Wrap(err, "Error while posting board"))
		return
	}

	writeBoard(w, http.StatusCreated, board)
}

func (e *HttpEndpoint) handleList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	cursor := params.Get("cursor")
	pageSizeStr := params.Get("n")

	if pageSizeStr == "" {
		pageSizeStr = strconv.Itoa(boardservice.MaxPageSize)
	}

	pageSize, err := strconv.ParseUint(pageSizeStr, 10, 32)

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "Invalid page size")
		return
	}

	boards, next, err := e.service.List(cursor, uint(pageSize))

	if err != nil {
		e.writeError(w, r, err)
		return
	}

	response := ListResponse{
		Boards: make([]BoardResponse, 0, len(boards)),
		Next:   next,
	}

	for _, board := range boards {
		response.Boards = append(response.Boards, NewBoardResponse(board))
	}

	w.Header().Set("Content-Type", JsonContentType)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (e *HttpEndpoint) handleGet(w http.ResponseWriter, r *http.Request) {
	number, ok := boardNumber(r)

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	board, err := e.service.Get(number)

	if err != nil {
		e.writeError(w, r, errors.Wrap(err, "Error while getting board"))
		return
	}

	writeBoard(w, http.StatusOK, board)
}

func (e *HttpEndpoint) handlePatch(w http.ResponseWriter, r *http.Request) {
	number, ok := boardNumber(r)

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req types.PatchBoardRequest

	if !decodeBody(w, r, &req) {
		return
	}

	board, err := e.service.Patch(number, req, Identity(r))

	if err != nil {
		e.writeError(w, r, errors.Wrap(err, "Error while patching board"))
		return
	}

	writeBoard(w, http.StatusOK, board)
}

func (e *HttpEndpoint) handleDelete(w http.ResponseWriter, r *http.Request) {
	number, ok := boardNumber(r)

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := e.service.Delete(number, Identity(r)); err != nil {
		e.writeError(w, r, errors.Wrap(err, "Error while deleting board"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// counterHandler adapts one of the counter operations of the service to an
// HTTP handler answering with the updated board.
func (e *HttpEndpoint) counterHandler(update func(number int64) (types.Board, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, ok := boardNumber(r)

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		board, err := update(number)

		if err != nil {
			e.writeError(w, r, errors.Wrap(err, "Error while updating board counter"))
			return
		}

		writeBoard(w, http.StatusOK, board)
	}
}

func (e *HttpEndpoint) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

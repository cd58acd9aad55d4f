package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/julienschmidt/httprouter"
	"github.com/tjstebbing/conductor"
	"go.uber.org/zap"
)

// WebAPI is the admin API over the TXCer lock tables.
type WebAPI struct {
	api    giga.API
	config giga.Config
	log    *zap.SugaredLogger
}

// interface guard ensures WebAPI implements conductor.Service
var _ conductor.Service = WebAPI{}

func NewWebAPI(config giga.Config, api giga.API, log *zap.SugaredLogger) (WebAPI, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return WebAPI{api: api, config: config, log: log}, nil
}

func (t WebAPI) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		addr := t.config.WebAPI.Bind + ":" + t.config.WebAPI.Port
		server := &http.Server{Addr: addr, Handler: t.createRouter()}
		t.log.Infow("admin API listening", "addr", addr)
		go func() {
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				t.log.Fatalw("HTTP server ListenAndServe", "err", err)
			}
		}()

		started <- true
		ctx := <-stop
		server.Shutdown(ctx)
		stopped <- true
	}()
	return nil
}

func (t WebAPI) createRouter() *httprouter.Router {
	mux := httprouter.New()

	// GET /locks/:account -> { lock status } locks and buffered updates
	mux.GET("/locks/:account", t.getLocks)

	// POST { ids, process_pending } /locks/:account/unlock -> { lock status }
	mux.POST("/locks/:account/unlock", t.unlock)

	// POST /locks/:account/forceunlock -> { lock status } drop every lock, replaying buffered updates
	mux.POST("/locks/:account/forceunlock", t.forceUnlock)

	// POST { id, status, payload } /txcer/:account/notify -> { status } settlement notification
	mux.POST("/txcer/:account/notify", t.notify)

	return mux
}

func (t WebAPI) getLocks(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	account := p.ByName("account")
	if account == "" {
		sendBadRequest(w, t.log, "missing account ID in URL")
		return
	}
	status, err := t.api.LockStatus(account)
	if err != nil {
		sendError(w, t.log, "LockStatus", err)
		return
	}
	sendResponse(w, t.log, status)
}

func (t WebAPI) unlock(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	account := p.ByName("account")
	if account == "" {
		sendBadRequest(w, t.log, "missing account ID in URL")
		return
	}
	var o giga.UnlockRequest
	err := json.NewDecoder(r.Body).Decode(&o)
	if err != nil {
		sendBadRequest(w, t.log, fmt.Sprintf("bad request body (expecting JSON): %v", err))
		return
	}
	status, err := t.api.Unlock(account, o)
	if err != nil {
		sendError(w, t.log, "Unlock", err)
		return
	}
	sendResponse(w, t.log, status)
}

func (t WebAPI) forceUnlock(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	account := p.ByName("account")
	if account == "" {
		sendBadRequest(w, t.log, "missing account ID in URL")
		return
	}
	status, err := t.api.ForceUnlockAll(account)
	if err != nil {
		sendError(w, t.log, "ForceUnlockAll", err)
		return
	}
	sendResponse(w, t.log, status)
}

type NotifyRequest struct {
	ID      string           `json:"id"`
	Status  giga.TXCerStatus `json:"status"`
	Payload *giga.UTXO       `json:"payload"`
}

type NotifyResponse struct {
	Buffered bool `json:"buffered"` // held until the instrument unlocks
}

func (t WebAPI) notify(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	account := p.ByName("account")
	if account == "" {
		sendBadRequest(w, t.log, "missing account ID in URL")
		return
	}
	var o NotifyRequest
	err := json.NewDecoder(r.Body).Decode(&o)
	if err != nil {
		sendBadRequest(w, t.log, fmt.Sprintf("bad request body (expecting JSON): %v", err))
		return
	}
	if o.Status != giga.TXCerPending && !o.Status.IsTerminal() {
		sendBadRequest(w, t.log, fmt.Sprintf("unknown TXCer status %d", o.Status))
		return
	}
	err = t.api.Notify(account, giga.TXCerUpdate{ID: o.ID, Status: o.Status, Payload: o.Payload})
	if err != nil {
		sendError(w, t.log, "Notify", err)
		return
	}
	status, err := t.api.LockStatus(account)
	if err != nil {
		sendError(w, t.log, "LockStatus", err)
		return
	}
	_, buffered := status.Pending[o.ID]
	sendResponse(w, t.log, NotifyResponse{Buffered: buffered})
}

package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/async"
	"github.com/platinummonkey/ioevents/pkg/httputil"
	"github.com/platinummonkey/ioevents/pkg/observability"
	"github.com/platinummonkey/ioevents/pkg/signature"
)

const (
	// DefaultPath is where deliveries are received
	DefaultPath = "/webhook"
	// DefaultMaxBodyBytes caps the accepted delivery body
	DefaultMaxBodyBytes int64 = 1 << 20
	// HeaderEventID carries the delivery id set by the events service
	HeaderEventID = "x-adobe-event-id"
)

// ErrQueueFull is recorded when no worker can take a delivery
var ErrQueueFull = errors.New("delivery queue is full")

// Verifier authenticates a raw webhook body. *events.Client implements it.
type Verifier interface {
	VerifyDigitalSignatureForEvent(ctx context.Context, rawEvent, recipientClientID string, opts signature.SignatureOptions) (bool, error)
}

// Delivery is an authenticated webhook event
type Delivery struct {
	ID         string          `json:"id"`
	Event      json.RawMessage `json:"event"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Handler processes authenticated deliveries
type Handler interface {
	HandleEvent(ctx context.Context, delivery Delivery) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, delivery Delivery) error

// HandleEvent calls f
func (f HandlerFunc) HandleEvent(ctx context.Context, delivery Delivery) error {
	return f(ctx, delivery)
}

// Options configures a Receiver
type Options struct {
	Path     string
	ClientID string
	Verifier Verifier
	Handler  Handler
	// Pool runs handlers asynchronously; nil handles inline before responding
	Pool         *async.WorkerPool
	Log          *DeliveryLog
	MaxBodyBytes int64
	Clock        clockwork.Clock
	Logger       *logrus.Logger
}

// Receiver serves the webhook endpoint
type Receiver struct {
	path     string
	clientID string
	verifier Verifier
	handler  Handler
	pool     *async.WorkerPool
	log      *DeliveryLog
	maxBody  int64
	clock    clockwork.Clock
	logger   *logrus.Logger
}

// NewReceiver creates a webhook receiver
func NewReceiver(opts Options) (*Receiver, error) {
	if opts.Verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if opts.ClientID == "" {
		return nil, fmt.Errorf("recipient client id is required")
	}

	r := &Receiver{
		path:     opts.Path,
		clientID: opts.ClientID,
		verifier: opts.Verifier,
		handler:  opts.Handler,
		pool:     opts.Pool,
		log:      opts.Log,
		maxBody:  opts.MaxBodyBytes,
		clock:    opts.Clock,
		logger:   observability.OrDefault(opts.Logger),
	}
	if r.path == "" {
		r.path = DefaultPath
	}
	if r.maxBody <= 0 {
		r.maxBody = DefaultMaxBodyBytes
	}
	if r.clock == nil {
		r.clock = clockwork.NewRealClock()
	}
	if r.log == nil {
		r.log = NewDeliveryLog(DefaultDeliveryLogSize)
	}
	return r, nil
}

// Log returns the receiver's delivery log
func (rc *Receiver) Log() *DeliveryLog {
	return rc.log
}

// RegisterRoutes registers the challenge and delivery routes
func (rc *Receiver) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(rc.path, rc.challenge).Methods(http.MethodGet)
	router.HandleFunc(rc.path, rc.receive).Methods(http.MethodPost)
}

// RegisterAdminRoutes registers the delivery log routes
func (rc *Receiver) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/deliveries", rc.listDeliveries).Methods(http.MethodGet)
	router.HandleFunc("/deliveries/stats", rc.deliveryStats).Methods(http.MethodGet)
	router.HandleFunc("/deliveries/{id}", rc.getDelivery).Methods(http.MethodGet)
	router.HandleFunc("/workers", rc.workerStats).Methods(http.MethodGet)
}

// SignatureOptionsFromHeader reads the signature headers of a delivery
func SignatureOptionsFromHeader(h http.Header) signature.SignatureOptions {
	return signature.SignatureOptions{
		DigiSignature1: h.Get(signature.HeaderSignature1),
		DigiSignature2: h.Get(signature.HeaderSignature2),
		PublicKeyPath1: h.Get(signature.HeaderKeyPath1),
		PublicKeyPath2: h.Get(signature.HeaderKeyPath2),
	}
}

// challenge handles GET {path}?challenge=... registration checks
func (rc *Receiver) challenge(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("challenge")
	if challenge == "" {
		httputil.WriteError(w, http.StatusBadRequest, "challenge is required")
		return
	}
	httputil.WriteOK(w, map[string]string{"challenge": challenge})
}

// receive handles POST {path}
func (rc *Receiver) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := deliveryID(r.Header)
	logger := observability.EntryFromContext(ctx, rc.logger).WithField("delivery_id", id)

	record := DeliveryRecord{
		ID:         id,
		Status:     DeliveryStatusAccepted,
		ReceivedAt: rc.clock.Now(),
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rc.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rc.reject(w, record, signature.NewResponseError(http.StatusRequestEntityTooLarge, "payload too large"))
			return
		}
		rc.reject(w, record, signature.NewResponseError(http.StatusBadRequest, signature.MsgBadPayload))
		return
	}

	valid, err := rc.verifier.VerifyDigitalSignatureForEvent(ctx, string(body), rc.clientID, SignatureOptionsFromHeader(r.Header))
	if err != nil {
		var respErr *signature.ResponseError
		if !errors.As(err, &respErr) {
			logger.WithError(err).Error("Signature verification failed")
			respErr = signature.NewResponseError(http.StatusInternalServerError, "internal server error")
		}
		rc.reject(w, record, respErr)
		return
	}
	if !valid {
		logger.Warn("Rejected delivery with invalid signature")
		rc.reject(w, record, signature.NewResponseError(http.StatusUnauthorized, signature.MsgBadSignature))
		return
	}

	payload, err := signature.DecodePayload(string(body))
	if err != nil {
		rc.reject(w, record, signature.NewResponseError(http.StatusBadRequest, signature.MsgBadPayload))
		return
	}
	event, err := payload.Canonical()
	if err != nil {
		rc.reject(w, record, signature.NewResponseError(http.StatusBadRequest, signature.MsgBadPayload))
		return
	}

	delivery := Delivery{ID: id, Event: event, ReceivedAt: record.ReceivedAt}
	task := func(ctx context.Context) error {
		return rc.dispatch(ctx, delivery)
	}

	record.StatusCode = http.StatusOK
	rc.log.Add(record)

	if rc.pool == nil {
		if err := task(ctx); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "delivery handler failed")
			return
		}
		httputil.WriteOK(w, map[string]string{"id": id, "status": string(DeliveryStatusHandled)})
		return
	}

	if !rc.pool.TrySubmit(task) {
		logger.Warn("Worker queue full, asking sender to retry")
		rc.log.Complete(id, DeliveryStatusRejected, rc.clock.Now(), ErrQueueFull)
		httputil.WriteRetryLater(w, time.Second, ErrQueueFull.Error())
		return
	}
	httputil.WriteOK(w, map[string]string{"id": id, "status": string(DeliveryStatusAccepted)})
}

func (rc *Receiver) dispatch(ctx context.Context, delivery Delivery) error {
	err := rc.handler.HandleEvent(ctx, delivery)
	if err != nil {
		rc.logger.WithError(err).WithField("delivery_id", delivery.ID).Error("Delivery handler failed")
		rc.log.Complete(delivery.ID, DeliveryStatusFailed, rc.clock.Now(), err)
		return err
	}
	rc.log.Complete(delivery.ID, DeliveryStatusHandled, rc.clock.Now(), nil)
	return nil
}

func (rc *Receiver) reject(w http.ResponseWriter, record DeliveryRecord, respErr *signature.ResponseError) {
	record.Status = DeliveryStatusRejected
	record.StatusCode = respErr.StatusCode
	record.ErrorMessage = respErr.Body
	rc.log.Add(record)
	respErr.Write(w)
}

func (rc *Receiver) listDeliveries(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryLimit(r, "limit", 50, DefaultDeliveryLogSize)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.WriteOK(w, rc.log.Recent(limit))
}

func (rc *Receiver) deliveryStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, rc.log.Stats())
}

func (rc *Receiver) workerStats(w http.ResponseWriter, r *http.Request) {
	if rc.pool == nil {
		httputil.WriteError(w, http.StatusNotFound, "deliveries are handled inline")
		return
	}
	httputil.WriteOK(w, rc.pool.Stats())
}

func (rc *Receiver) getDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathParam(w, r, "id")
	if !ok {
		return
	}
	record, found := rc.log.Get(id)
	if !found {
		httputil.WriteError(w, http.StatusNotFound, "delivery not found")
		return
	}
	httputil.WriteOK(w, record)
}

func deliveryID(h http.Header) string {
	if id := h.Get(HeaderEventID); id != "" {
		return id
	}
	return uuid.NewString()
}

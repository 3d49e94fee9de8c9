package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/auth"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/notify"
	"stockflow/internal/domain/workflow"
	"stockflow/internal/infrastructure/http/v1/dto"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/internal/infrastructure/redisstore"
	"stockflow/internal/infrastructure/storage/memory"
	"stockflow/internal/metadata"
	"stockflow/pkg/logger"
)

type recordingNotifier struct {
	mu      sync.Mutex
	changes []notify.StatusChange
}

func (n *recordingNotifier) NotifyStatusChange(_ context.Context, c notify.StatusChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

func (n *recordingNotifier) all() []notify.StatusChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.StatusChange(nil), n.changes...)
}

type testAPI struct {
	t        *testing.T
	router   http.Handler
	notifier *recordingNotifier
	items    *catalog.Static
	ledger   *ledger.Service
}

func newTestAPI(t *testing.T, mutate ...func(*RouterConfig)) *testAPI {
	t.Helper()

	store := memory.NewStore()
	items := catalog.NewStatic()
	notifier := &recordingNotifier{}
	svc := ledger.NewService(store.Accounts(), items, store, ledger.DefaultConfig())
	engine := workflow.NewEngine(workflow.Deps{
		Repo:      store.Tickets(),
		Ledger:    svc,
		Catalog:   items,
		TxManager: store,
		Notifier:  notifier,
	})

	enums := metadata.NewRegistry()
	enums.Register(ledger.Enums()...)
	enums.Register(engine.Definitions().Enums()...)

	cfg := RouterConfig{
		Logger:    logger.NewNop(),
		Ledger:    svc,
		Engine:    engine,
		Items:     items,
		TxManager: store,
		Notifier:  notifier,
		Enums:     enums,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	return &testAPI{t: t, router: NewRouter(cfg), notifier: notifier, items: items, ledger: svc}
}

func (a *testAPI) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderActorID, "alice")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) item(kind catalog.VariantKind) catalog.ItemRef {
	a.t.Helper()
	ref := catalog.ItemRef{Kind: kind, ID: id.New()}
	w := a.do(http.MethodPut, "/items/"+string(kind)+"/"+ref.ID.String(), dto.UpsertItemRequest{Name: "test " + string(kind)})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return ref
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[middleware.ErrorResponse](t, w).Code
}

func stockPath(item catalog.ItemRef, suffix string) string {
	return "/stock/" + string(item.Kind) + "/" + item.ID.String() + suffix
}

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestStockAccountLifecycle(t *testing.T) {
	api := newTestAPI(t)
	item := api.item(catalog.KindProduct)
	minAlert := qty(2)

	w := api.do(http.MethodPost, "/stock", dto.CreateAccountRequest{
		Kind:           string(item.Kind),
		ItemID:         item.ID.String(),
		InitialCurrent: qty(10),
		MinAlertStock:  &minAlert,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.StockResultResponse](t, w)
	assert.Equal(t, string(ledger.StatusInStock), created.Account.Status)
	assert.Equal(t, "In stock", created.Account.StatusLabel)
	assert.True(t, created.Account.CurrentStock.Equal(qty(10)))

	w = api.do(http.MethodPost, stockPath(item, "/allocate"), dto.MovementRequest{Quantity: qty(9), Source: string(ledger.SourceSaleAllocation)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[dto.StockResultResponse](t, w)
	assert.True(t, res.Account.Available.Equal(qty(1)))
	assert.Equal(t, string(ledger.StatusLowStock), res.Account.Status)
	assert.True(t, res.StatusChanged)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, string(ledger.DimensionAllocated), res.Transaction.Dimension)

	changes := api.notifier.all()
	require.Len(t, changes, 1)
	assert.Equal(t, notify.SubjectStockAccount, changes[0].Subject)
	assert.Equal(t, "alice", changes[0].ActorID)

	w = api.do(http.MethodGet, stockPath(item, "/is-enough?planned=2"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[dto.IsEnoughResponse](t, w).Enough)

	w = api.do(http.MethodGet, stockPath(item, "/is-enough?planned=1e3"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = api.do(http.MethodGet, stockPath(item, "/history"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	history := decode[dto.ListResponse[dto.TransactionResponse]](t, w)
	require.Len(t, history.Items, 2)
	assert.Equal(t, string(ledger.SourceInitial), history.Items[0].Source)
	assert.Equal(t, "alice", history.Items[1].ActorID)

	w = api.do(http.MethodGet, stockPath(item, "/history?dimension=CURRENT"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.ListResponse[dto.TransactionResponse]](t, w).Items, 1)
}

func TestStockErrors(t *testing.T) {
	api := newTestAPI(t)
	item := api.item(catalog.KindProduct)

	t.Run("missing actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1"+stockPath(item, ""), nil)
		w := httptest.NewRecorder()
		api.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperror.CodeUnauthorized, errorCode(t, w))
	})

	t.Run("unknown account", func(t *testing.T) {
		w := api.do(http.MethodGet, stockPath(item, ""), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		w := api.do(http.MethodPost, stockPath(item, "/add-current"), dto.MovementRequest{Quantity: qty(0)})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeValidation, errorCode(t, w))
	})

	t.Run("bad kind", func(t *testing.T) {
		w := api.do(http.MethodGet, "/stock/gadget/"+item.ID.String(), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		w := api.do(http.MethodPut, stockPath(item, "/current"), dto.SetStockRequest{Quantity: qty(3), CreateIfMissing: true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = api.do(http.MethodPost, stockPath(item, "/subtract-current"), dto.MovementRequest{Quantity: qty(5)})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, apperror.CodeInsufficientStock, errorCode(t, w))

		acc, err := api.ledger.GetAccount(context.Background(), item)
		require.NoError(t, err)
		assert.True(t, acc.CurrentStock.Equal(qty(3)))
	})

	t.Run("source not applicable to kind", func(t *testing.T) {
		w := api.do(http.MethodPost, stockPath(item, "/subtract-current"), dto.MovementRequest{
			Quantity: qty(1),
			Source:   string(ledger.SourceProductionConsumption),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBulkAddReportsPerItemFailures(t *testing.T) {
	api := newTestAPI(t)
	known := api.item(catalog.KindMaterial)
	unknown := catalog.Material(id.New())

	w := api.do(http.MethodPost, "/bulk/stock/set", dto.BulkStockRequest{
		CreateIfMissing: true,
		Items: []dto.BulkItemRequest{
			{Kind: string(known.Kind), ItemID: known.ID.String(), Quantity: qty(4)},
			{Kind: string(unknown.Kind), ItemID: unknown.ID.String(), Quantity: qty(4)},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[dto.BulkResultResponse](t, w)
	require.Len(t, res.Succeeded, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Equal(t, apperror.CodeNotFound, res.Failed[0].Code)
	assert.True(t, res.Succeeded[0].Account.CurrentStock.Equal(qty(4)))
}

func TestTicketFlow(t *testing.T) {
	api := newTestAPI(t)
	item := api.item(catalog.KindMaterial)

	w := api.do(http.MethodPost, "/tickets", dto.CreateTicketRequest{
		Domain:    string(workflow.DomainPurchasing),
		Name:      "steel order",
		Assignees: []string{"bob"},
		Details: []dto.CreateDetailRequest{
			{Kind: string(item.Kind), ItemID: item.ID.String(), Quantity: qty(5)},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ticket := decode[dto.TicketResponse](t, w)
	assert.Equal(t, string(workflow.StatusNew), ticket.Status)
	require.Len(t, ticket.Details, 1)
	detailPath := "/tickets/" + ticket.ID + "/details/" + ticket.Details[0].ID

	w = api.do(http.MethodPost, detailPath+"/transitions", dto.TransitionRequest{Status: string(workflow.StatusApproval)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tr := decode[dto.TransitionResponse](t, w)
	assert.Equal(t, string(workflow.StatusNew), tr.PreviousStatus)
	assert.Equal(t, string(workflow.StatusApproval), tr.Ticket.Status)
	assert.True(t, tr.TicketChanged)
	require.NotNil(t, tr.Stock)
	assert.True(t, tr.Stock.Account.FutureStock.Equal(qty(5)))

	w = api.do(http.MethodPost, detailPath+"/transitions", dto.TransitionRequest{Status: string(workflow.StatusClosed)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInvalidTransition, errorCode(t, w))

	w = api.do(http.MethodPost, "/tickets/"+ticket.ID+"/details/"+id.New().String()+"/transitions",
		dto.TransitionRequest{Status: string(workflow.StatusApproval)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPost, "/tickets/"+ticket.ID+"/cancel", dto.CancelRequest{Reason: "supplier gone"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[dto.TicketResponse](t, w)
	assert.Equal(t, string(workflow.StatusCancelled), cancelled.Status)
	assert.Equal(t, string(workflow.StatusCancelled), cancelled.Details[0].Status)

	acc, err := api.ledger.GetAccount(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, acc.FutureStock.IsZero())

	w = api.do(http.MethodGet, "/tickets/"+ticket.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	full := decode[dto.TicketResponse](t, w)
	assert.Len(t, full.History, 3)
	assert.Len(t, full.Details[0].History, 3)

	w = api.do(http.MethodPost, "/tickets/"+ticket.ID+"/recompute", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[dto.RecomputeResponse](t, w).Changed)
}

func TestRecordConsumption(t *testing.T) {
	api := newTestAPI(t)
	material := api.item(catalog.KindMaterial)
	product := api.item(catalog.KindProduct)

	w := api.do(http.MethodPost, "/tickets", dto.CreateTicketRequest{
		Domain: string(workflow.DomainProduction),
		Name:   "chairs",
		Details: []dto.CreateDetailRequest{{
			Kind: string(product.Kind), ItemID: product.ID.String(), Quantity: qty(2),
			BOM: []dto.BOMLineRequest{{MaterialID: material.ID.String(), Planned: qty(6)}},
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ticket := decode[dto.TicketResponse](t, w)
	require.Len(t, ticket.Details[0].BOM, 1)
	assert.Nil(t, ticket.Details[0].BOM[0].Actual)
	bomPath := "/tickets/" + ticket.ID + "/details/" + ticket.Details[0].ID + "/bom/"

	w = api.do(http.MethodPut, bomPath+ticket.Details[0].BOM[0].ID, dto.ConsumptionRequest{Actual: qty(7)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	detail := decode[dto.DetailResponse](t, w)
	require.NotNil(t, detail.BOM[0].Actual)
	assert.True(t, detail.BOM[0].Actual.Equal(qty(7)))

	w = api.do(http.MethodPut, bomPath+id.New().String(), dto.ConsumptionRequest{Actual: qty(1)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPut, bomPath+ticket.Details[0].BOM[0].ID, dto.ConsumptionRequest{Actual: qty(-1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowRules(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/workflows/sale/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]dto.RuleResponse](t, w)
	require.Len(t, rows, 6)
	assert.Equal(t, string(workflow.StatusNew), rows[0].Status)
	assert.ElementsMatch(t, []string{"ALLOCATED", "CANCELLED"}, rows[0].Allowed)

	w = api.do(http.MethodGet, "/workflows/production/rules/CLOSED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.RuleResponse](t, w).Terminal)

	w = api.do(http.MethodGet, "/workflows/sale/rules/BOGUS", nil)
	assert.Equal(t, apperror.CodeUnknownStatus, errorCode(t, w))

	w = api.do(http.MethodGet, "/workflows/rental/rules", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetaEnums(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meta/enums/"+ledger.EnumStockStatus, nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[metadata.EnumDef](t, w).Values, 4)

	w = api.do(http.MethodGet, "/meta/enums/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletingItemDeactivatesAccount(t *testing.T) {
	api := newTestAPI(t)
	item := api.item(catalog.KindProduct)

	w := api.do(http.MethodPut, stockPath(item, "/current"), dto.SetStockRequest{Quantity: qty(1), CreateIfMissing: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodDelete, "/items/product/"+item.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = api.do(http.MethodPost, stockPath(item, "/add-current"), dto.MovementRequest{Quantity: qty(1)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeItemUnavailable, errorCode(t, w))

	w = api.do(http.MethodGet, stockPath(item, ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[dto.AccountResponse](t, w).Active)
}

func TestIdempotentReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	api := newTestAPI(t, func(cfg *RouterConfig) {
		cfg.Idempotency = redisstore.NewIdempotencyStore(rdb, time.Hour)
	})
	item := api.item(catalog.KindProduct)
	w := api.do(http.MethodPut, stockPath(item, "/current"), dto.SetStockRequest{Quantity: qty(0), CreateIfMissing: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := dto.MovementRequest{Quantity: qty(3)}
	first := api.do(http.MethodPost, stockPath(item, "/add-current"), body, middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := api.do(http.MethodPost, stockPath(item, "/add-current"), body, middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.HeaderReplayed))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	acc, err := api.ledger.GetAccount(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, acc.CurrentStock.Equal(qty(3)))

	other := api.do(http.MethodPost, stockPath(item, "/add-current"), dto.MovementRequest{Quantity: qty(4)}, middleware.HeaderIdempotencyKey, "k-1")
	assert.Equal(t, http.StatusBadRequest, other.Code)
}

func TestBearerAuth(t *testing.T) {
	jwtSvc := auth.NewTokens("0123456789abcdef0123456789abcdef", "stockflow")
	api := newTestAPI(t, func(cfg *RouterConfig) {
		cfg.TokenValidator = jwtSvc
	})

	token, _, err := jwtSvc.Issue("carol")
	require.NoError(t, err)

	item := catalog.Product(id.New())
	require.NoError(t, api.items.Upsert(context.Background(), catalog.ItemState{Item: item, Name: "widget"}))

	w := api.do(http.MethodPut, stockPath(item, "/current"), dto.SetStockRequest{Quantity: qty(2), CreateIfMissing: true},
		"Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "carol", decode[dto.StockResultResponse](t, w).Account.UpdatedBy)

	w = api.do(http.MethodGet, stockPath(item, ""), nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

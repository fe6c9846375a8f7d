package service_test

import (
	"context"
	"sync"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/shopstock/stock-backend/internal/stock/store/memstore"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/testutil"
)

type recorder struct {
	mu         sync.Mutex
	requests   []service.TransferRequest
	reconciled []*service.ReconcileResult
}

func (r *recorder) NotifyTransferRequest(ctx context.Context, req service.TransferRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func (r *recorder) StockReconciled(ctx context.Context, by *actor.Actor, res *service.ReconcileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciled = append(r.reconciled, res)
}

type env struct {
	store    *memstore.Store
	fixtures *testutil.FixtureFactory
	events   *recorder
	log      *logger.Logger
	manager  domain.StockUser
	shop     domain.StockUser
}

func newEnv() *env {
	e := &env{
		store:    memstore.New(),
		fixtures: testutil.NewFixtureFactory(),
		events:   &recorder{},
		log:      logger.NewNop(),
	}
	e.manager = e.fixtures.Manager()
	e.manager.Username = "boss"
	e.shop = e.fixtures.User(testutil.WithUsername("shop1"))
	e.store.PutUser(e.manager)
	e.store.PutUser(e.shop)
	return e
}

func (e *env) item(opts ...func(*domain.Item)) domain.Item {
	it := e.fixtures.Item(opts...)
	e.store.PutItem(it)
	return it
}

func (e *env) managerActor() *actor.Actor { return testutil.ActorFor(e.manager) }
func (e *env) shopActor() *actor.Actor    { return testutil.ActorFor(e.shop) }

func (e *env) reconciler() *service.Reconciler {
	return service.NewReconciler(e.store, service.NewSweeper(e.store, e.log), nil, e.events, e.log)
}

func (e *env) transfers() *service.TransferService {
	return service.NewTransferService(e.store, e.events, e.log)
}

func warehouseSheet(rows ...sheet.Row) *sheet.Sheet {
	s := sheet.Warehouse.NewSheet()
	s.Rows = append(s.Rows, rows...)
	return s
}

func shopSheet(rows ...sheet.Row) *sheet.Sheet {
	s := sheet.Shop.NewSheet()
	s.Rows = append(s.Rows, rows...)
	return s
}

func workbook(sheets ...*sheet.Sheet) *sheet.Workbook {
	wb := sheet.NewWorkbook()
	for _, s := range sheets {
		wb.Add(s)
	}
	return wb
}

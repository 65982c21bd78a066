package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// ExpenseServiceName is the fully-qualified name of the expense service.
const ExpenseServiceName = "splitledger.v1.ExpenseService"

const (
	ResolveSplitProcedure  = "/" + ExpenseServiceName + "/ResolveSplit"
	CreateExpenseProcedure = "/" + ExpenseServiceName + "/CreateExpense"
	GetBalancesProcedure   = "/" + ExpenseServiceName + "/GetBalances"
)

// ExpenseServiceHandler is the server side of the expense service.
type ExpenseServiceHandler interface {
	ResolveSplit(context.Context, *connect.Request[ResolveSplitRequest]) (*connect.Response[ResolveSplitResponse], error)
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler serving every procedure of
// svc. It returns the path prefix to mount the handler on.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	resolveSplit := connect.NewUnaryHandler(ResolveSplitProcedure, svc.ResolveSplit, opts...)
	createExpense := connect.NewUnaryHandler(CreateExpenseProcedure, svc.CreateExpense, opts...)
	getBalances := connect.NewUnaryHandler(GetBalancesProcedure, svc.GetBalances, opts...)

	return "/" + ExpenseServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ResolveSplitProcedure:
			resolveSplit.ServeHTTP(w, r)
		case CreateExpenseProcedure:
			createExpense.ServeHTTP(w, r)
		case GetBalancesProcedure:
			getBalances.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ExpenseServiceClient calls the expense service over Connect.
type ExpenseServiceClient struct {
	resolveSplit  *connect.Client[ResolveSplitRequest, ResolveSplitResponse]
	createExpense *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	getBalances   *connect.Client[GetBalancesRequest, GetBalancesResponse]
}

// NewExpenseServiceClient creates a client for the service at baseURL.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &ExpenseServiceClient{
		resolveSplit:  connect.NewClient[ResolveSplitRequest, ResolveSplitResponse](httpClient, baseURL+ResolveSplitProcedure, opts...),
		createExpense: connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+CreateExpenseProcedure, opts...),
		getBalances:   connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+GetBalancesProcedure, opts...),
	}
}

func (c *ExpenseServiceClient) ResolveSplit(ctx context.Context, req *connect.Request[ResolveSplitRequest]) (*connect.Response[ResolveSplitResponse], error) {
	return c.resolveSplit.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

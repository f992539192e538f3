package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"meme-market/src/events"
	"meme-market/src/helpers"
	"meme-market/src/interfaces"
	"meme-market/src/ledger"
	"meme-market/src/logger"
	"meme-market/src/models"
)

var _ MarketControlServer = (*ControlService)(nil)

// ControlService implements MarketControlServer over the ledger and the store.
type ControlService struct {
	Ledger     *ledger.Ledger
	Store      interfaces.IStore
	Publishers *events.MultiPublisher
	Logger     *logger.Logger
	StartedAt  time.Time
}

// NewControlService creates a new instance of ControlService
func NewControlService(l *ledger.Ledger, store interfaces.IStore, publishers *events.MultiPublisher, log *logger.Logger) *ControlService {
	return &ControlService{
		Ledger:     l,
		Store:      store,
		Publishers: publishers,
		Logger:     log,
		StartedAt:  time.Now(),
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	users, err := s.Store.CountUsers(ctx)
	if err != nil {
		return nil, s.internal("count users", err)
	}
	stocks, err := s.Ledger.Stocks(ctx)
	if err != nil {
		return nil, s.internal("list stocks", err)
	}

	return toStruct(map[string]interface{}{
		"users":          users,
		"stocks":         len(stocks),
		"recent":         s.Ledger.RecentCount(),
		"publishers":     s.publisherNames(),
		"uptime_seconds": int64(time.Since(s.StartedAt).Seconds()),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListStocks(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stocks, err := s.Ledger.Stocks(ctx)
	if err != nil {
		return nil, s.internal("list stocks", err)
	}
	return toStruct(map[string]interface{}{"stocks": stocks})
}

func (s *ControlService) GetStock(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "stock name is required")
	}
	view, err := s.Ledger.Stock(ctx, req.GetValue())
	if errors.Is(err, helpers.ErrStockNotFound) {
		return nil, status.Errorf(codes.NotFound, "stock %s not found", req.GetValue())
	}
	if err != nil {
		return nil, s.internal("load stock", err)
	}
	return toStruct(view)
}

func (s *ControlService) GetHistory(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	history, err := s.Ledger.History(ctx, req.GetValue())
	if err != nil {
		return nil, s.internal("load history", err)
	}
	return toStruct(map[string]interface{}{"history": history})
}

// GetStockStats summarizes the price history of one stock.
func (s *ControlService) GetStockStats(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	stats, err := s.Ledger.Stats(ctx, req.GetValue())
	if errors.Is(err, helpers.ErrStockNotFound) {
		return nil, status.Errorf(codes.NotFound, "stock %s not found", req.GetValue())
	}
	if err != nil {
		return nil, s.internal("summarize history", err)
	}
	return toStruct(stats)
}

// -----------------------------------------------------------------------------

// RecentTransactions returns the latest N trades; N <= 0 returns the whole feed.
func (s *ControlService) RecentTransactions(_ context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	var txns []models.MTransaction
	if n := int(req.GetValue()); n > 0 {
		txns = s.Ledger.RecentN(n)
	} else {
		txns = s.Ledger.Recent()
	}
	return toStruct(map[string]interface{}{"transactions": txns})
}

// GetUser looks a user up by external id, then by display name.
func (s *ControlService) GetUser(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	key := req.GetValue()
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, "user id or name is required")
	}

	user, err := s.Store.UserByExternalID(ctx, key)
	if errors.Is(err, helpers.ErrUserNotFound) {
		user, err = s.Store.UserByName(ctx, key)
	}
	if errors.Is(err, helpers.ErrUserNotFound) {
		return nil, status.Errorf(codes.NotFound, "no such user %s", key)
	}
	if err != nil {
		return nil, s.internal("load user", err)
	}

	summary, err := s.Ledger.Summary(ctx, user)
	if err != nil {
		return nil, s.internal("summarize user", err)
	}
	return toStruct(map[string]interface{}{
		"id":     user.ExternalID,
		"name":   user.Name,
		"money":  summary.Money,
		"stocks": summary.Stocks,
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListPublishers(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{"publishers": s.publisherNames()})
}

// RemovePublisher detaches a trade publisher, e.g. a broker that keeps failing.
func (s *ControlService) RemovePublisher(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "publisher name is required")
	}
	if s.Publishers == nil {
		return nil, status.Error(codes.FailedPrecondition, "no publishers configured")
	}

	if err := s.Publishers.Remove(req.GetValue()); err != nil {
		return nil, status.Errorf(codes.NotFound, "publisher %s not found", req.GetValue())
	}

	s.Logger.Info("gRPC: removed publisher %s", req.GetValue())
	return toStruct(map[string]interface{}{"publishers": s.publisherNames()})
}

// -----------------------------------------------------------------------------

func (s *ControlService) publisherNames() []string {
	if s.Publishers == nil {
		return []string{}
	}
	names := s.Publishers.Names()
	sort.Strings(names)
	return names
}

func (s *ControlService) internal(action string, err error) error {
	s.Logger.Error("gRPC: failed to %s: %v", action, err)
	return status.Errorf(codes.Internal, "failed to %s", action)
}

// toStruct converts any JSON-encodable value through its JSON form, so the
// reply carries the same field names as the HTTP API.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}

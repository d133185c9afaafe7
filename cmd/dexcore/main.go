// Command dexcore boots the matching engine: loads configuration, wires an
// order book, AMM pools, router, oracle, event log, and WebSocket broadcaster
// together, seeds a couple of demo markets, and serves the REST/WS façade
// until signaled to stop on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/driftline-labs/dexcore/pkg/amm/concentrated"
	"github.com/driftline-labs/dexcore/pkg/amm/cpamm"
	"github.com/driftline-labs/dexcore/pkg/amm/stableswap"
	"github.com/driftline-labs/dexcore/pkg/broadcast"
	"github.com/driftline-labs/dexcore/pkg/config"
	"github.com/driftline-labs/dexcore/pkg/eventlog"
	"github.com/driftline-labs/dexcore/pkg/logging"
	"github.com/driftline-labs/dexcore/pkg/market"
	"github.com/driftline-labs/dexcore/pkg/oracle"
	"github.com/driftline-labs/dexcore/pkg/orderbook"
	"github.com/driftline-labs/dexcore/pkg/router"
	"github.com/driftline-labs/dexcore/pkg/types"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP/WS listen address")
	envPath := flag.String("env", "", "path to a .env file (optional)")
	dataDir := flag.String("data", "./data", "event log storage directory")
	flag.Parse()

	cfg := config.LoadFromEnv(*envPath)

	log, err := logging.NewWithFile("./data/dexcore.log")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	evlog, err := eventlog.Open(*dataDir + "/events")
	if err != nil {
		log.Fatal("open event log", zap.Error(err))
	}
	defer evlog.Close()

	registry := market.NewRegistry()
	ethUSDC := types.NewPair("ETH", "USDC")
	mkt, err := market.New(ethUSDC, market.Params{TickSize: 1, LotSize: 1, MinOrderSize: 1})
	if err != nil {
		log.Fatal("create market", zap.Error(err))
	}
	if err := registry.Register(mkt); err != nil {
		log.Fatal("register market", zap.Error(err))
	}

	books := make(map[types.Pair]*orderbook.Book)

	server := broadcast.NewServer(log, func(symbol string) (*orderbook.Book, bool) {
		for pair, b := range books {
			if pair.String() == symbol {
				return b, true
			}
		}
		return nil, false
	})

	notifier := func(snap orderbook.DepthSnapshot) {
		server.Hub().Publish("depth:"+snap.Pair.String(), snap)
	}

	books[ethUSDC] = orderbook.New(ethUSDC, mkt, orderbook.Config{
		DepthN:   cfg.OrderBook.DefaultDepth,
		Notifier: notifier,
		Events:   &logSink{log: evlog, pair: ethUSDC, zlog: log},
	})

	cpPool := cpamm.New(ethUSDC, 30) // 0.3% fee
	if _, err := cpPool.AddLiquidity(1_000_000, 2_000_000_000); err != nil {
		log.Warn("seed cpamm liquidity", zap.Error(err))
	} else {
		a, q := cpPool.Reserves()
		if _, err := evlog.Append(eventlog.PoolUpdated, ethUSDC, map[string]uint64{"reserve_a": a, "reserve_b": q}); err != nil {
			log.Warn("eventlog append failed", zap.Error(err))
		}
	}

	clPool := concentrated.New(ethUSDC)
	if err := clPool.AddLiquidityAt(2000, 10_000); err != nil {
		log.Warn("seed concentrated liquidity", zap.Error(err))
	}

	usdcDai := types.NewPair("USDC", "DAI")
	ssPool, err := stableswap.New(usdcDai, 100, 4) // A=100, 4bps fee
	if err != nil {
		log.Fatal("create stableswap pool", zap.Error(err))
	}
	if _, err := ssPool.AddLiquidity(5_000_000, 5_000_000); err != nil {
		log.Warn("seed stableswap liquidity", zap.Error(err))
	}

	graph := router.NewGraph()
	if base, err := cpPool.SpotPrice(ethUSDC.Base); err == nil {
		graph.UpsertEdge("cpamm-eth-usdc", ethUSDC.Base, ethUSDC.Quote, base*(1-0.003), 0.003, 1_000_000, "cpamm")
	}
	if quote, err := cpPool.SpotPrice(ethUSDC.Quote); err == nil {
		graph.UpsertEdge("cpamm-eth-usdc", ethUSDC.Quote, ethUSDC.Base, quote*(1-0.003), 0.003, 2_000_000_000, "cpamm")
	}
	graph.UpsertEdge("stableswap-usdc-dai", usdcDai.Base, usdcDai.Quote, 1.0*(1-0.0004), 0.0004, 5_000_000, "stableswap")
	graph.UpsertEdge("stableswap-usdc-dai", usdcDai.Quote, usdcDai.Base, 1.0*(1-0.0004), 0.0004, 5_000_000, "stableswap")

	rt := router.New(graph, router.Config{
		MaxHops: cfg.Router.MaxHops,
		Budget:  cfg.Router.Budget,
	})
	if route, err := rt.FindRoute(context.Background(), ethUSDC.Base, usdcDai.Quote); err == nil {
		log.Info("seeded route available", zap.Int("hops", len(route.Path)))
	}

	agg := oracle.New(cfg.Oracle.RingCapacity)
	agg.Push(ethUSDC, oracle.Observation{Source: "cpamm", Price: 2000, Timestamp: time.Now().Unix()})

	go func() {
		if err := server.Start(*addr); err != nil {
			log.Fatal("server exited", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down")
}

// logSink feeds one book's event stream into the persistent event log.
type logSink struct {
	log  *eventlog.Log
	pair types.Pair
	zlog *zap.Logger
}

func (s *logSink) OrderAccepted(o types.Order) { s.append(eventlog.OrderAccepted, o) }
func (s *logSink) TradeEmitted(t types.Trade)  { s.append(eventlog.TradeEmitted, t) }
func (s *logSink) OrderCancelled(id uint64) {
	s.append(eventlog.OrderCancelled, map[string]uint64{"order_id": id})
}

func (s *logSink) append(kind eventlog.Kind, payload any) {
	if _, err := s.log.Append(kind, s.pair, payload); err != nil {
		s.zlog.Warn("eventlog append failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

package container

import (
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/application/service"
	dsvc "fundarb/internal/domain/service"
)

// Options 业务参数
type Options struct {
	InitialCash   float64
	FeeRate       float64
	FundingPeriod time.Duration
	Risk          *dsvc.RiskManager // nil 不限制
}

// Deps 基础设施依赖，Cache / Quoter / Archive 可为 nil
type Deps struct {
	Repo    port.Repository
	Board   port.MarketBoard
	Cache   port.PriceCache
	Quoter  port.PriceQuoter
	Archive port.SnapshotArchive
}

type Container struct {
	deps Deps
	opts Options

	calc             *dsvc.ReturnCalculator
	builder          *dsvc.LegBuilder
	accountService   *service.AccountService
	positionService  *service.PositionService
	portfolioService *service.PortfolioService
	priceService     *service.PriceService
	snapshotService  *service.SnapshotService
}

func New(deps Deps, opts Options) *Container {
	return &Container{deps: deps, opts: opts}
}

func (c *Container) Repository() port.Repository {
	return c.deps.Repo
}

func (c *Container) Board() port.MarketBoard {
	return c.deps.Board
}

func (c *Container) Calculator() *dsvc.ReturnCalculator {
	if c.calc == nil {
		c.calc = dsvc.NewReturnCalculator(c.opts.FundingPeriod)
	}
	return c.calc
}

func (c *Container) LegBuilder() *dsvc.LegBuilder {
	if c.builder == nil {
		c.builder = dsvc.NewLegBuilder(c.opts.FeeRate)
	}
	return c.builder
}

func (c *Container) AccountService() *service.AccountService {
	if c.accountService == nil {
		c.accountService = service.NewAccountService(c.deps.Repo, c.opts.InitialCash)
	}
	return c.accountService
}

func (c *Container) PositionService() *service.PositionService {
	if c.positionService == nil {
		c.positionService = service.NewPositionService(c.deps.Repo, c.AccountService(), c.LegBuilder(), c.Calculator(), c.deps.Board).
			WithRisk(c.opts.Risk)
	}
	return c.positionService
}

func (c *Container) PortfolioService() *service.PortfolioService {
	if c.portfolioService == nil {
		c.portfolioService = service.NewPortfolioService(c.deps.Repo, c.AccountService(), c.Calculator(), c.deps.Board)
	}
	return c.portfolioService
}

func (c *Container) PriceService() *service.PriceService {
	if c.priceService == nil {
		c.priceService = service.NewPriceService(c.deps.Board, c.deps.Cache, c.deps.Quoter)
	}
	return c.priceService
}

func (c *Container) SnapshotService() *service.SnapshotService {
	if c.snapshotService == nil {
		c.snapshotService = service.NewSnapshotService(c.PortfolioService(), c.deps.Archive)
	}
	return c.snapshotService
}

func (c *Container) Close() error {
	return c.deps.Repo.Close()
}

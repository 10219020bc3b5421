package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	cli "gopkg.in/urfave/cli.v1"

	participation "github.com/OmniBazaar/participation"
	"github.com/OmniBazaar/participation/config"
	"github.com/OmniBazaar/participation/control"
	"github.com/OmniBazaar/participation/ledger"
	"github.com/OmniBazaar/participation/qualify"
	"github.com/OmniBazaar/participation/score"
	"github.com/OmniBazaar/participation/starterimpl/ethstake"
	"github.com/OmniBazaar/participation/starterimpl/httpledger"
	"github.com/OmniBazaar/participation/starterimpl/inmem"
)

func main() {
	app := cli.NewApp()
	app.Name = "participation"
	app.Usage = "query and update marketplace participation scores"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "./config.json",
			Usage: "path to the engine configuration file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "score",
			Usage:     "compute the participation score for an address",
			ArgsUsage: "<address>",
			Action:    scoreAction,
		},
		{
			Name:  "leaderboard",
			Usage: "show the network-wide score ranking",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "limit", Value: 10, Usage: "maximum number of rows"},
			},
			Action: leaderboardAction,
		},
		{
			Name:      "check-validator",
			Usage:     "evaluate validator qualification for an address",
			ArgsUsage: "<address>",
			Action:    checkValidatorAction,
		},
		{
			Name:      "check-listing-node",
			Usage:     "evaluate listing-node qualification for an address",
			ArgsUsage: "<address>",
			Action:    checkListingNodeAction,
		},
		{
			Name:  "serve",
			Usage: "run the HTTP admin surface",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "port", Value: 8585, Usage: "admin server port"},
			},
			Action: serveAction,
		},
		{
			Name:      "report",
			Usage:     "report an observed activity event to the ledger",
			ArgsUsage: "<address> <component> <detail>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "amount", Usage: "transaction amount for marketplace events"},
				cli.StringFlag{Name: "target", Usage: "reported address for policing events"},
			},
			Action: reportAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildEngine(c *cli.Context) (*participation.Engine, error) {
	cfg, err := config.LoadConfig(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	logger := zapLogger.Sugar()

	minStake, err := cfg.MinStake()
	if err != nil {
		return nil, err
	}

	var staking qualify.StakingSource
	if cfg.Staking.RPCEndpoint != "" {
		staking, err = ethstake.Dial(context.Background(), cfg.Staking.RPCEndpoint, cfg.Staking.ContractAddress)
		if err != nil {
			return nil, err
		}
	}

	return participation.NewEngine(
		httpledger.NewLedger(cfg.Ledger.Endpoint, cfg.LedgerTimeout()),
		inmem.NewScoreCache(cfg.CacheEntries(), cfg.CacheTTL()),
		staking,
		nil,
		cfg.PolicyTable(),
		cfg.CacheTTL(),
		minStake,
		logger,
	)
}

func requireAddress(c *cli.Context) (score.Address, error) {
	addr := c.Args().First()
	if addr == "" {
		return "", cli.NewExitError("an address argument is required", 1)
	}
	return score.Address(addr), nil
}

func scoreAction(c *cli.Context) error {
	address, err := requireAddress(c)
	if err != nil {
		return err
	}
	engine, err := buildEngine(c)
	if err != nil {
		return err
	}
	return printJSON(engine.Score(context.Background(), address))
}

func leaderboardAction(c *cli.Context) error {
	engine, err := buildEngine(c)
	if err != nil {
		return err
	}
	return printJSON(engine.Leaderboard(context.Background(), c.Int("limit")))
}

func checkValidatorAction(c *cli.Context) error {
	address, err := requireAddress(c)
	if err != nil {
		return err
	}
	engine, err := buildEngine(c)
	if err != nil {
		return err
	}
	return printJSON(engine.CheckValidatorQualification(context.Background(), address))
}

func checkListingNodeAction(c *cli.Context) error {
	address, err := requireAddress(c)
	if err != nil {
		return err
	}
	engine, err := buildEngine(c)
	if err != nil {
		return err
	}
	return printJSON(engine.CheckListingNodeQualification(context.Background(), address))
}

func serveAction(c *cli.Context) error {
	engine, err := buildEngine(c)
	if err != nil {
		return err
	}
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	return control.StartAdminServer(engine, c.Int("port"), zapLogger.Sugar())
}

func reportAction(c *cli.Context) error {
	address, err := requireAddress(c)
	if err != nil {
		return err
	}

	event, err := buildEvent(c)
	if err != nil {
		return err
	}

	engine, err := buildEngine(c)
	if err != nil {
		return err
	}

	updated, err := engine.ReportActivity(context.Background(), address, event)
	if err != nil {
		return err
	}
	return printJSON(updated)
}

// buildEvent maps the positional component and detail arguments onto the
// typed event for that component. detail is the new-user address for
// referrals, the listing hash for publishing, and the activity kind for the
// remaining components.
func buildEvent(c *cli.Context) (ledger.Event, error) {
	component := c.Args().Get(1)
	detail := c.Args().Get(2)
	switch ledger.Component(component) {
	case ledger.ComponentReferrals:
		return ledger.ReferralEvent{NewUser: score.Address(detail)}, nil
	case ledger.ComponentPublishing:
		return ledger.PublishingEvent{ListingHash: detail}, nil
	case ledger.ComponentForum:
		return ledger.ForumEvent{Kind: ledger.ForumActivityKind(detail)}, nil
	case ledger.ComponentMarketplace:
		return ledger.MarketplaceEvent{Kind: ledger.MarketplaceActivityKind(detail), Amount: c.String("amount")}, nil
	case ledger.ComponentPolicing:
		return ledger.PolicingEvent{Kind: ledger.PolicingActivityKind(detail), Target: score.Address(c.String("target"))}, nil
	case ledger.ComponentReliability:
		return ledger.ReliabilityEvent{Kind: ledger.ReliabilityActivityKind(detail)}, nil
	default:
		return nil, cli.NewExitError(fmt.Sprintf("unrecognized component: %s", component), 1)
	}
}

func printJSON(value any) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

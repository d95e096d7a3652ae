package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/config"
	"github.com/stake-plus/solana-dao-radar/src/governance"
	"github.com/stake-plus/solana-dao-radar/src/logging"
	"github.com/stake-plus/solana-dao-radar/src/radar"
)

var logger = loggo.GetLogger("daoradar.smoketest")

var (
	walletFlag    = flag.String("wallet", "", "Wallet address to aggregate (empty lists featured DAOs)")
	programFlag   = flag.String("program", "", "Governance program for the proposal listing (default from config)")
	summarizeFlag = flag.Bool("summarize", false, "Summarise the first active proposal")
	timeoutFlag   = flag.Duration("timeout", 60*time.Second, "Overall timeout")
	limitFlag     = flag.Int("limit", 10, "Maximum proposals to print (0=all)")
	maxLenFlag    = flag.Int("max-bytes", 600, "Maximum bytes of description to print (0=unlimited)")
)

func main() {
	flag.Parse()
	_ = logging.Configure(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load(nil)
	if err != nil {
		logger.Criticalf("config: %v", err)
		os.Exit(1)
	}
	services, err := radar.New(cfg)
	if err != nil {
		logger.Criticalf("services: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	views, err := loadViews(ctx, services)
	if err != nil {
		logger.Criticalf("aggregate: %v", err)
		os.Exit(1)
	}
	if len(views) == 0 {
		fmt.Println("no DAOs found")
		return
	}
	printViews(views)

	first := views[0]
	start := time.Now()
	proposals, err := services.Aggregator.GetOrganizationProposals(ctx, first.RealmID, *programFlag)
	if err != nil {
		logger.Criticalf("proposals of %s: %v", first.RealmID, err)
		os.Exit(1)
	}
	fmt.Printf("\n=== %s: %d proposals (%.1fs) ===\n", first.Name, len(proposals), time.Since(start).Seconds())
	for i, p := range proposals {
		if *limitFlag > 0 && i == *limitFlag {
			fmt.Printf("... %d more\n", len(proposals)-i)
			break
		}
		fmt.Printf("%-10s %s  %s\n", governance.DisplayLabel(p.Account.State), governance.ShortenAddress(p.Pubkey.String(), 4), p.Account.Name)
	}

	if *summarizeFlag {
		summarizeFirstActive(ctx, services, proposals)
	}
}

func loadViews(ctx context.Context, s *radar.Services) ([]governance.DAOView, error) {
	if strings.TrimSpace(*walletFlag) == "" {
		return s.Aggregator.GetFeaturedOrganizations(ctx)
	}
	return s.Aggregator.GetUserOrganizations(ctx, *walletFlag)
}

func printViews(views []governance.DAOView) {
	fmt.Printf("=== %d DAOs ===\n", len(views))
	for _, v := range views {
		fmt.Printf("%-11s %-28s power=%-8s active=%d\n",
			governance.ShortenAddress(v.RealmID, 4), truncate(v.Name, 28), governance.FormatCompact(v.VotingPower), v.ActiveProposals)
	}
}

func summarizeFirstActive(ctx context.Context, s *radar.Services, proposals []governance.Proposal) {
	for _, p := range proposals {
		if !p.Account.State.IsActive() {
			continue
		}
		desc := s.Describe.Fetch(ctx, p.Account.DescriptionLink)
		res, err := s.Summary.Summarize(ctx, p.Account.Name, desc)
		if err != nil {
			fmt.Printf("summary ❌ %v\n", err)
			return
		}
		fmt.Printf("\n=== summary of %s ===\n%s\nimpact: %s\n\n%s\n",
			p.Account.Name, res.Summary, res.Impact, truncate(desc, *maxLenFlag))
		return
	}
	fmt.Println("\nno active proposal to summarise")
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}

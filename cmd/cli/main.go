package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"navigader/internal/cluster"
	"navigader/internal/config"
	"navigader/internal/cost"
	"navigader/internal/der"
	"navigader/internal/ingest"
	"navigader/internal/openei"
	"navigader/internal/timeseries"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "bill":
		cmdBill(os.Args[2:])
	case "simulate":
		cmdSimulate(os.Args[2:])
	case "cluster":
		cmdCluster(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli bill --meters item17.csv --rates usurdb.json --plan \"E-19 Medium General Demand TOU\" --said 1234567890")
	fmt.Println("  cli simulate --meters item17.csv --rates usurdb.json --plan NAME --der battery.yaml")
	fmt.Println("  cli cluster --meters item17.csv --k 4")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - bill prints one monthly bill breakdown for a single service agreement")
	fmt.Println("  - simulate applies a DER fixture to every meter and prints bill impacts")
	fmt.Println("  - cluster groups meters by normalized month-hour load shape")
}

func cmdBill(args []string) {
	fs := flag.NewFlagSet("bill", flag.ExitOnError)
	meterPath := fs.String("meters", "", "Path to Item 17 CSV")
	ratePath := fs.String("rates", "", "Path to USURDB JSON export")
	planName := fs.String("plan", "", "Rate plan name")
	said := fs.String("said", "", "Service agreement ID (default: first in file)")
	_ = fs.Parse(args)

	file := loadItem17(*meterPath)
	plan := loadPlan(*ratePath, *planName)

	id := *said
	if id == "" {
		id = file.SAIDs()[0]
	}
	frame, err := file.Frame(id)
	if err != nil {
		panic(err)
	}

	bills, err := plan.GenerateBills(context.Background(), frame, cost.DateRanges(frame))
	if err != nil {
		panic(err)
	}
	var total float64
	for _, start := range sortedMonths(bills) {
		bill := bills[start]
		fmt.Printf("%s\n", start.Format("Jan 2006"))
		for _, item := range bill.Items {
			fmt.Printf("  %-10s %-40s %10.2f\n", item.Category, item.Description, item.Total)
		}
		total += bill.Total()
	}
	fmt.Printf("total: $%.2f\n", total)
}

func cmdSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	meterPath := fs.String("meters", "", "Path to Item 17 CSV")
	ratePath := fs.String("rates", "", "Path to USURDB JSON export")
	planName := fs.String("plan", "", "Rate plan name")
	derPath := fs.String("der", "", "Path to DER fixture YAML")
	_ = fs.Parse(args)

	file := loadItem17(*meterPath)
	plan := loadPlan(*ratePath, *planName)

	fixture, err := config.LoadDER(*derPath)
	if err != nil {
		panic(err)
	}
	sim := buildSimulator(fixture)

	agg := der.NewAggregateProduct()
	for _, said := range file.SAIDs() {
		frame, err := file.Frame(said)
		if err != nil {
			panic(err)
		}
		product, err := sim.Simulate(frame)
		if err != nil {
			panic(err)
		}
		agg.Add(said, product)
	}

	impact, err := cost.ComputeBillImpact(context.Background(), agg, plan)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%-14s %12s %12s %12s\n", "said", "pre $", "post $", "net $")
	for _, said := range agg.MeterIDs() {
		var pre, post float64
		for _, b := range impact.PreBills[said] {
			pre += b.Total()
		}
		for _, b := range impact.PostBills[said] {
			post += b.Total()
		}
		fmt.Printf("%-14s %12.2f %12.2f %12.2f\n", said, pre, post, post-pre)
	}
	fmt.Printf("net impact: $%.2f\n", impact.NetImpact())
}

func cmdCluster(args []string) {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	meterPath := fs.String("meters", "", "Path to Item 17 CSV")
	k := fs.Int("k", 4, "Number of clusters")
	seed := fs.Int64("seed", 1, "Random seed")
	_ = fs.Parse(args)

	file := loadItem17(*meterPath)
	saids := file.SAIDs()
	frames := make([]timeseries.Frame288, len(saids))
	for i, said := range saids {
		frame, err := file.Frame(said)
		if err != nil {
			panic(err)
		}
		frames[i] = frame.AverageFrame288()
	}

	result, err := cluster.KMeans(frames, *k, true, rand.New(rand.NewSource(*seed)))
	if err != nil {
		panic(err)
	}
	for c := 0; c < *k; c++ {
		members := result.Members(c)
		fmt.Printf("cluster %d (%d meters):", c, len(members))
		for _, i := range members {
			fmt.Printf(" %s", saids[i])
		}
		fmt.Println()
	}
}

func sortedMonths(bills map[time.Time]*cost.Bill) []time.Time {
	months := make([]time.Time, 0, len(bills))
	for start := range bills {
		months = append(months, start)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

func loadItem17(path string) *ingest.Item17 {
	if path == "" {
		fmt.Println("--meters is required")
		os.Exit(2)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		panic(err)
	}
	defer f.Close()
	file, err := ingest.ParseItem17(f)
	if err != nil {
		panic(err)
	}
	return file
}

func loadPlan(path, name string) *cost.RatePlan {
	if path == "" || name == "" {
		fmt.Println("--rates and --plan are required")
		os.Exit(2)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		panic(err)
	}
	defer f.Close()
	rates, err := openei.ReadUSURDB(f)
	if err != nil {
		panic(err)
	}
	plans, err := openei.GroupRatePlans(rates)
	if err != nil {
		panic(err)
	}
	for _, plan := range plans {
		if plan.Name == name {
			return plan
		}
	}
	panic(fmt.Errorf("rate plan %q not found", name))
}

func buildSimulator(fixture *config.DERFixture) der.Simulator {
	switch fixture.Type {
	case "battery":
		sim, err := fixture.BatterySimulator()
		if err != nil {
			panic(err)
		}
		return sim
	case "evse":
		sim, err := fixture.EVSESimulator()
		if err != nil {
			panic(err)
		}
		return sim
	case "solar":
		pv, strategy := fixture.SolarConfig()
		return der.SolarSimulator{
			PV:       pv,
			Strategy: strategy,
			Source:   der.NewPVWattsClient("", os.Getenv("PVWATTS_API_KEY"), 30*time.Second),
		}
	default:
		panic(fmt.Errorf("unsupported DER type for local simulation: %q", fixture.Type))
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	serverAddr = flag.String("addr", "localhost:8080", "The server address in the format host:port")
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Check if we have enough arguments
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Get the command
	command := os.Args[1]

	// Remove the command from os.Args to make flag parsing work
	os.Args = append(os.Args[:1], os.Args[2:]...)
	flag.Parse()

	baseURL := fmt.Sprintf("http://%s", *serverAddr)
	client := &http.Client{Timeout: 10 * time.Second}

	// Execute the appropriate command
	switch command {
	case "submit":
		args := flag.Args()
		if len(args) < 3 {
			fmt.Println("Usage: submit <buy|sell> <price> <amount>")
			os.Exit(1)
		}
		submitOrder(client, baseURL, args[0], args[1], args[2])
	case "top":
		topOfBook(client, baseURL, flag.Arg(0))
	case "matches":
		matchHistory(client, baseURL+"/matches")
	case "latest":
		url := baseURL + "/matches/latest"
		if n := flag.Arg(0); n != "" {
			url += "?n=" + n
		}
		matchHistory(client, url)
	case "watch":
		watchMatches()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: client [-addr host:port] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  submit <buy|sell> <price> <amount>   Submit a limit order")
	fmt.Println("  top [n]                              Show the top price levels per side")
	fmt.Println("  matches                              Show the full match history")
	fmt.Println("  latest [n]                           Show the most recent matches")
	fmt.Println("  watch                                Stream executed pairings")
}

func submitOrder(client *http.Client, baseURL, side, price, amount string) {
	amountValue, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		log.Fatal().Str("amount", amount).Msg("Amount must be an integer")
	}

	payload, _ := json.Marshal(map[string]any{
		"side":   side,
		"price":  price,
		"amount": amountValue,
	})

	resp, err := client.Post(baseURL+"/orders", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to submit order")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		log.Fatal().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Order rejected")
	}

	var result struct {
		OrderID string `json:"orderId"`
		Side    string `json:"side"`
		Price   string `json:"price"`
		Amount  int64  `json:"amount"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode response")
	}

	log.Info().
		Str("order_id", result.OrderID).
		Str("side", result.Side).
		Str("price", result.Price).
		Int64("amount", result.Amount).
		Msg("Order accepted")
}

func topOfBook(client *http.Client, baseURL, n string) {
	url := baseURL + "/orderbook/top"
	if n != "" {
		url += "?n=" + n
	}

	resp, err := client.Get(url)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch top of book")
	}
	defer resp.Body.Close()

	var view struct {
		BuyLevels []struct {
			Price  string `json:"price"`
			Amount int64  `json:"amount"`
		} `json:"buyLevels"`
		SellLevels []struct {
			Price  string `json:"price"`
			Amount int64  `json:"amount"`
		} `json:"sellLevels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode response")
	}

	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%15s|%15s|%s\n", cyan("Price"), cyan("Amount"), cyan("Side"))
	fmt.Fprintf(w, "%15s|%15s|%s\n", "---------------", "---------------", "----")

	// Asks print best-last so the spread sits in the middle
	for i := len(view.SellLevels) - 1; i >= 0; i-- {
		level := view.SellLevels[i]
		price, _ := strconv.ParseFloat(level.Price, 64)
		fmt.Fprintf(w, "%15.3f|%15d|%s\n", price, level.Amount, red("ASK"))
	}

	fmt.Fprintf(w, "%15s|%15s|%s\n", "---------------", "---------------", "----")

	for _, level := range view.BuyLevels {
		price, _ := strconv.ParseFloat(level.Price, 64)
		fmt.Fprintf(w, "%15.3f|%15d|%s\n", price, level.Amount, green("BID"))
	}

	if err := w.Flush(); err != nil {
		log.Fatal().Err(err).Msg("Failed to print table")
	}
}

func matchHistory(client *http.Client, url string) {
	resp, err := client.Get(url)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch matches")
	}
	defer resp.Body.Close()

	var result struct {
		Matches []struct {
			BuyPrice  string `json:"buyPrice"`
			SellPrice string `json:"sellPrice"`
			Amount    int64  `json:"amount"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode response")
	}

	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%15s|%15s|%15s\n", cyan("Buy Price"), cyan("Sell Price"), cyan("Amount"))
	fmt.Fprintf(w, "%15s|%15s|%15s\n", "---------------", "---------------", "---------------")

	for _, match := range result.Matches {
		buyPrice, _ := strconv.ParseFloat(match.BuyPrice, 64)
		sellPrice, _ := strconv.ParseFloat(match.SellPrice, 64)
		fmt.Fprintf(w, "%15.3f|%15.3f|%15d\n", buyPrice, sellPrice, match.Amount)
	}

	if err := w.Flush(); err != nil {
		log.Fatal().Err(err).Msg("Failed to print table")
	}
}

func watchMatches() {
	url := fmt.Sprintf("ws://%s/ws", *serverAddr)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", url).Msg("Failed to connect")
	}
	defer conn.Close()

	log.Info().Str("url", url).Msg("Watching executed pairings, Ctrl-C to stop")

	for {
		var msg struct {
			Type string `json:"type"`
			Data struct {
				BuyPrice  string `json:"buyPrice"`
				SellPrice string `json:"sellPrice"`
				Amount    int64  `json:"amount"`
			} `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			log.Fatal().Err(err).Msg("Connection closed")
		}

		log.Info().
			Str("buy_price", msg.Data.BuyPrice).
			Str("sell_price", msg.Data.SellPrice).
			Int64("amount", msg.Data.Amount).
			Msg("Match")
	}
}

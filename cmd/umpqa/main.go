package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"umpire-rules-rag/internal/answer"
	"umpire-rules-rag/internal/app"
	"umpire-rules-rag/internal/config"
	"umpire-rules-rag/internal/models"
	"umpire-rules-rag/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	contextLimit := flag.Int("context", 0, "Number of rule chunks to retrieve (overrides top_k)")
	interactive := flag.Bool("i", false, "Run in interactive mode")
	queryFlag := flag.String("q", "", "Question to answer (non-interactive mode)")
	validate := flag.Bool("validate", false, "Treat the question as an umpire call to validate")
	division := flag.String("division", "", "League division (e.g. 'Majors')")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *contextLimit > 0 {
		cfg.TopK = *contextLimit
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if *interactive {
		runInteractiveMode(ctx, a.Service, *division)
		return
	}

	if *queryFlag == "" {
		log.Fatal("Question is required in non-interactive mode. Use -q 'your question'")
	}

	req := service.Request{Question: *queryFlag, Division: *division}
	var res service.Result
	if *validate {
		res = a.Service.ValidateCall(ctx, req)
	} else {
		res = a.Service.Ask(ctx, req)
	}
	fmt.Println(formatAnswer(res))
}

func runInteractiveMode(ctx context.Context, svc *service.Service, division string) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Umpire Rules Assistant - Ask questions about baseball rules (type 'exit' to quit)")
	fmt.Println("Commands: /division <name>, /validate <call>, /up, /down [comment]")
	if division != "" {
		fmt.Printf("Division set to: %s\n", division)
	}

	var (
		history   []models.Turn
		sessionID string
		lastID    int64
	)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(input)
		if lower == "exit" || lower == "quit" {
			break
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(lower, "/division") {
			division = strings.TrimSpace(input[len("/division"):])
			if division == "" {
				fmt.Println("Division cleared")
			} else {
				fmt.Printf("Division set to: %s\n", division)
			}
			continue
		}

		if lower == "/up" || strings.HasPrefix(lower, "/down") {
			if lastID == 0 {
				fmt.Println("Nothing to rate yet")
				continue
			}
			up := lower == "/up"
			comment := ""
			if !up {
				comment = strings.TrimSpace(input[len("/down"):])
			}
			if err := svc.Feedback(ctx, lastID, up, !up, comment); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println("Thanks for the feedback!")
			continue
		}

		validate := false
		if strings.HasPrefix(lower, "/validate ") {
			validate = true
			input = strings.TrimSpace(input[len("/validate "):])
		}

		fmt.Print("Searching the rulebook... ")

		req := service.Request{
			Question:  input,
			Division:  division,
			SessionID: sessionID,
			History:   history,
		}
		var res service.Result
		if validate {
			res = svc.ValidateCall(ctx, req)
		} else {
			res = svc.Ask(ctx, req)
		}

		sessionID = res.SessionID
		lastID = res.InteractionID
		history = append(history, models.Turn{Question: input, Answer: res.Answer.Text})
		if len(history) > answer.MaxHistoryTurns {
			history = history[len(history)-answer.MaxHistoryTurns:]
		}

		fmt.Println("\r" + formatAnswer(res))
	}
}

func formatAnswer(res service.Result) string {
	var sb strings.Builder

	sb.WriteString(res.Answer.Text)
	sb.WriteString("\n\n")

	if res.RuleReference != "" {
		sb.WriteString(fmt.Sprintf("Reference: %s\n", res.RuleReference))
	}
	if res.Division != "" && res.Division != service.DefaultDivision {
		sb.WriteString(fmt.Sprintf("Division: %s\n", res.Division))
	}
	if res.Answer.State == models.StateDone {
		sb.WriteString(fmt.Sprintf("[%s, %d tokens, %v]\n", res.Answer.Provider, res.Answer.TokensUsed, res.ResponseTime.Round(1e6)))
	}

	return sb.String()
}

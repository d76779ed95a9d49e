package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"grace-checkin-bot/internal/catalog"
	"grace-checkin-bot/internal/config"
	"grace-checkin-bot/pkg/analysis"
	"grace-checkin-bot/pkg/pipeline"

	"github.com/fatih/color"
)

// Local console check-in: same catalog, collapse rules and pipeline as the
// bot, driven interactively from the terminal.
func main() {
	push := flag.Bool("push", false, "commit and push the encrypted entry after storing it")
	dryRun := flag.Bool("dry-run", false, "run the prompts and summary without writing anything")
	flag.Parse()

	cfg := config.Load()

	states, err := catalog.Load(cfg.Journal.StatesPath)
	if err != nil {
		log.Fatalf("failed to load states catalog: %v", err)
	}

	var circumplex *analysis.Circumplex
	if cfg.Journal.CircumplexPath != "" {
		if circumplex, err = analysis.Load(cfg.Journal.CircumplexPath); err != nil {
			log.Printf("circumplex map unavailable, analysis disabled: %v", err)
			circumplex = nil
		}
	}

	reader := bufio.NewReader(os.Stdin)

	title := color.New(color.FgCyan, color.Bold)
	title.Println("\n✨ Check-in GRACE")
	fmt.Println("Responde con número o código. Enter vacío repite la pregunta.")

	answers := map[string]string{}
	bits := map[string]int{}

	for _, dim := range catalog.DimOrder {
		code := askDimension(reader, states, dim)
		answers[dim] = code

		if catalog.IsNeutral(code) {
			bits[dim] = askCollapse(reader, dim)
			continue
		}
		if bit, ok := catalog.BitForCode(code); ok {
			bits[dim] = bit
		}
	}

	fmt.Println("\n📝 Nota final (Enter para omitir):")
	note, _ := reader.ReadString('\n')
	note = strings.TrimSpace(note)

	printSummary(states, circumplex, answers, bits, note)

	if *dryRun {
		color.Yellow("\nModo dry-run: no se guardó nada.")
		return
	}

	processor := pipeline.NewProcessor(pipeline.Options{
		RepoRoot:      cfg.Journal.RepoRoot,
		DataPath:      cfg.Journal.DataPath,
		PlaintextPath: cfg.Journal.PlaintextPath,
		KeyPath:       cfg.Journal.KeyPath,
		KeyEnvVar:     cfg.Journal.KeyEnvVar,
		KeyLabel:      cfg.Journal.KeyLabel,
		PushRemote:    cfg.Journal.PushRemote,
		PushBranch:    cfg.Journal.PushBranch,
	})

	entry := renderEntry(states, answers, bits, note)
	metadata := map[string]interface{}{
		"source":       "grace_console",
		"grace":        answers,
		"bits":         bits,
		"note_present": note != "",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := processor.Process(ctx, entry, metadata, *push, "")
	if err != nil {
		color.Red("\n%s", result)
		os.Exit(1)
	}
	color.Green("\n%s", result)
}

func askDimension(reader *bufio.Reader, states *catalog.Catalog, dim string) string {
	options := states.Options(dim)

	for {
		fmt.Printf("\n%s %s: %s\n", catalog.DimEmoji[dim], dim, catalog.DimDescriptions[dim])
		for i, opt := range options {
			fmt.Printf("  %d. %s (%s)\n", i+1, opt.Label, opt.Code)
		}
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			color.Red("entrada cerrada, saliendo")
			os.Exit(1)
		}

		if code, ok := catalog.ResolveAnswer(strings.TrimSpace(line), options); ok {
			return code
		}
		color.Yellow("Respuesta no válida. Usa el número o el código de la lista.")
	}
}

func askCollapse(reader *bufio.Reader, dim string) int {
	for {
		fmt.Printf("\nEstado neutro en %s. ¿Hacia dónde se inclina? 0 = Yin (bajo), 1 = Yang (alto)\n> ", dim)
		line, err := reader.ReadString('\n')
		if err != nil {
			color.Red("entrada cerrada, saliendo")
			os.Exit(1)
		}
		switch strings.TrimSpace(line) {
		case "0":
			return 0
		case "1":
			return 1
		}
		color.Yellow("Responde 0 o 1.")
	}
}

func printSummary(states *catalog.Catalog, circumplex *analysis.Circumplex, answers map[string]string, bits map[string]int, note string) {
	header := color.New(color.FgCyan, color.Bold)
	header.Println("\n── Resumen ──")

	for _, dim := range catalog.DimOrder {
		code := answers[dim]
		line := fmt.Sprintf("%s %s: %s (%s)", catalog.DimEmoji[dim], dim, states.Label(dim, code), code)
		if bit, ok := bits[dim]; ok && catalog.IsNeutral(code) {
			if bit == 1 {
				line += color.HiYellowString(" → Yang (1)")
			} else {
				line += color.HiBlueString(" → Yin (0)")
			}
		}
		fmt.Println(line)
	}

	if note != "" {
		fmt.Printf("📝 Nota: %s\n", note)
	}

	if circumplex != nil {
		summary := circumplex.Analyze(answers, bits)
		fmt.Printf("🧭 Valencia %s, Activación %s. %s\n",
			summary.ValenceLabel, summary.ArousalLabel, summary.GlobalState)
	}
}

func renderEntry(states *catalog.Catalog, answers map[string]string, bits map[string]int, note string) string {
	var b strings.Builder
	b.WriteString("Check-in GRACE (console)\n")
	for _, dim := range catalog.DimOrder {
		code := answers[dim]
		b.WriteString(fmt.Sprintf("- %s %s: %s (%s)", catalog.DimEmoji[dim], dim, states.Label(dim, code), code))
		if bit, ok := bits[dim]; ok && catalog.IsNeutral(code) {
			b.WriteString(fmt.Sprintf(" [bit %d]", bit))
		}
		b.WriteString("\n")
	}
	if note != "" {
		b.WriteString("Nota: " + note + "\n")
	}
	return b.String()
}

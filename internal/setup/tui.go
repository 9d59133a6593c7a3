// Package setup renders the interactive terminal control panel.
package setup

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martictl/internal/panel"
	"go.uber.org/zap"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	alert     = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF6B6B"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(1)

	messageStyle = lipgloss.NewStyle().
			Foreground(alert)

	transactionStyle = lipgloss.NewStyle().
				Foreground(special).
				Bold(true)
)

// Menu actions.
const (
	actionPortfolio = "portfolio"
	actionAsset     = "asset"
	actionBuy       = "buy"
	actionSell      = "sell"
	actionStrategy  = "strategy"
	actionStop      = "stop"
	actionQuit      = "quit"
)

// RunPanel drives the control-panel menu loop until the user quits or the
// context is cancelled. All state mutations go through the session; the UI
// owns nothing but the forms.
func RunPanel(ctx context.Context, p *panel.Panel, logger *zap.Logger) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		renderHeader(p)

		var action string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Choose an action").
					Options(
						huh.NewOption("View portfolio", actionPortfolio),
						huh.NewOption("Select asset", actionAsset),
						huh.NewOption("Buy asset", actionBuy),
						huh.NewOption("Sell asset", actionSell),
						huh.NewOption("Trading strategy", actionStrategy),
						huh.NewOption("Stop strategy", actionStop),
						huh.NewOption("Quit", actionQuit),
					).
					Value(&action),
			),
		).Run()
		if err != nil {
			return err
		}

		switch action {
		case actionPortfolio:
			renderPortfolio(p)
		case actionAsset:
			if err := selectAsset(p); err != nil {
				logger.Warn("asset selection failed", zap.Error(err))
			}
		case actionBuy:
			placeOrder(ctx, p, true)
		case actionSell:
			placeOrder(ctx, p, false)
		case actionStrategy:
			if err := runStrategyWizard(ctx, p); err != nil {
				return err
			}
		case actionStop:
			stopStrategy(ctx, p)
		case actionQuit:
			return nil
		}
	}
}

func renderHeader(p *panel.Panel) {
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("TESTNET CONTROL PANEL"))

	selectedLine := "no asset selected"
	if option, ok := p.Selected(); ok {
		selectedLine = option.Label
	}
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render(
		fmt.Sprintf("Asset: %s   Quote balance: %s", selectedLine, p.Portfolio.QuoteBalance())))

	if tx := p.Transaction(); tx != "" {
		fmt.Println(transactionStyle.Render(tx))
	}
	if msg := p.Message(); msg != "" {
		fmt.Println(messageStyle.Render(msg))
	}
	fmt.Println()
}

func renderPortfolio(p *panel.Panel) {
	balances := p.Portfolio.Balances()

	var b strings.Builder
	fmt.Fprintf(&b, "Quote balance: %s\n\n", p.Portfolio.QuoteBalance())
	if len(balances) == 0 {
		b.WriteString("no balances")
	}
	for _, balance := range balances {
		fmt.Fprintf(&b, "%-8s %s\n", balance.Asset, balance.Free.String())
	}
	fmt.Println(panelStyle.Render(strings.TrimRight(b.String(), "\n")))

	waitForEnter()
}

func selectAsset(p *panel.Panel) error {
	options := p.Options()
	if len(options) == 0 {
		fmt.Println(messageStyle.Render("Asset list is empty"))
		waitForEnter()
		return nil
	}

	choices := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		choices = append(choices, huh.NewOption(o.Label, o.Symbol))
	}

	var symbol string
	if option, ok := p.Selected(); ok {
		symbol = option.Symbol
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Asset").
				Options(choices...).
				Value(&symbol),
		),
	).Run()
	if err != nil {
		return err
	}
	return p.Select(symbol)
}

func placeOrder(ctx context.Context, p *panel.Panel, buy bool) {
	option, ok := p.Selected()
	if !ok {
		fmt.Println(messageStyle.Render("Select an asset first"))
		waitForEnter()
		return
	}

	title := fmt.Sprintf("Sell %s", option.BaseAsset)
	if buy {
		title = fmt.Sprintf("Buy %s", option.BaseAsset)
	}

	quantityStr := "0.01"
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(fmt.Sprintf("Quantity in %s", option.BaseAsset)).
				Value(&quantityStr).
				Validate(validateQuantity),
		),
	).Run()
	if err != nil {
		return
	}

	quantity, _ := strconv.ParseFloat(quantityStr, 64)
	if buy {
		_ = p.Buy(ctx, quantity)
	} else {
		_ = p.Sell(ctx, quantity)
	}
}

func stopStrategy(ctx context.Context, p *panel.Panel) {
	base := p.Composer.Draft().BaseAsset

	var confirm bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Stop the strategy for %s?", base)).
				Affirmative("Yes, stop it").
				Negative("No, keep running").
				Value(&confirm),
		),
	).Run()
	if err != nil || !confirm {
		return
	}
	_ = p.StopStrategy(ctx)
}

func validateQuantity(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func waitForEnter() {
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("press enter to continue"))
	fmt.Scanln()
}

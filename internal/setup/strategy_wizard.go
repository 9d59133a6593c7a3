package setup

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/vadiminshakov/martictl/internal/domain"
	"github.com/vadiminshakov/martictl/internal/panel"
)

// Wizard actions.
const (
	wizardBasics = "basics"
	wizardWindow = "window"
	wizardAdd    = "add"
	wizardEdit   = "edit"
	wizardRemove = "remove"
	wizardSubmit = "submit"
	wizardBack   = "back"
)

// runStrategyWizard edits the strategy draft and submits it. Every field
// write is routed through the composer's Apply entry point so the parsing
// rules live in one place.
func runStrategyWizard(ctx context.Context, p *panel.Panel) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("TRADING STRATEGY"))
		fmt.Println(panelStyle.Render(renderDraft(p.Composer.Draft())))

		var action string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Strategy").
					Options(
						huh.NewOption("Edit pair and quantity", wizardBasics),
						huh.NewOption("Edit historical data window", wizardWindow),
						huh.NewOption("Add indicator", wizardAdd),
						huh.NewOption("Edit indicator", wizardEdit),
						huh.NewOption("Remove indicator", wizardRemove),
						huh.NewOption("Submit strategy", wizardSubmit),
						huh.NewOption("Back", wizardBack),
					).
					Value(&action),
			),
		).Run()
		if err != nil {
			return err
		}

		switch action {
		case wizardBasics:
			if err := editBasics(p); err != nil {
				return err
			}
		case wizardWindow:
			if err := editWindow(p); err != nil {
				return err
			}
		case wizardAdd:
			p.Composer.AddIndicator()
			if err := editIndicator(p, len(p.Composer.Draft().Indicators)-1); err != nil {
				return err
			}
		case wizardEdit:
			if err := pickAndEditIndicator(p); err != nil {
				return err
			}
		case wizardRemove:
			if err := removeIndicator(p); err != nil {
				return err
			}
		case wizardSubmit:
			_ = p.SubmitStrategy(ctx)
			return nil
		case wizardBack:
			return nil
		}
	}
}

func editBasics(p *panel.Panel) error {
	draft := p.Composer.Draft()
	base := draft.BaseAsset
	quote := draft.QuoteAsset
	quantity := domain.FormatNumber(draft.Quantity)

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Base Asset").Value(&base),
			huh.NewInput().Title("Quote Asset").Value(&quote),
			huh.NewInput().
				Title("Quantity").
				Description("Base asset quantity per trade").
				Value(&quantity).
				Validate(validateNumberOrEmpty),
		),
	).Run()
	if err != nil {
		return err
	}

	applyAll(p, map[string]string{
		"baseAsset":  base,
		"quoteAsset": quote,
		"quantity":   quantity,
	})
	return nil
}

func editWindow(p *panel.Panel) error {
	draft := p.Composer.Draft()
	timeframe := string(draft.HistoricalData.Timeframe)
	dataPoints := ""
	if draft.HistoricalData.DataPoints > 0 {
		dataPoints = strconv.Itoa(draft.HistoricalData.DataPoints)
	}

	timeframes := make([]huh.Option[string], 0, len(domain.Timeframes()))
	for _, tf := range domain.Timeframes() {
		timeframes = append(timeframes, huh.NewOption(timeframeTitle(tf), string(tf)))
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Timeframe").
				Options(timeframes...).
				Value(&timeframe),
			huh.NewInput().
				Title("Data Points").
				Description("Number of historical candles").
				Value(&dataPoints).
				Validate(validateNumberOrEmpty),
		),
	).Run()
	if err != nil {
		return err
	}

	applyAll(p, map[string]string{
		"timeframe":  timeframe,
		"dataPoints": dataPoints,
	})
	return nil
}

func pickAndEditIndicator(p *panel.Panel) error {
	index, ok, err := pickIndicator(p, "Edit which indicator?")
	if err != nil || !ok {
		return err
	}
	return editIndicator(p, index)
}

func editIndicator(p *panel.Panel, index int) error {
	draft := p.Composer.Draft()
	if index < 0 || index >= len(draft.Indicators) {
		return nil
	}
	indicator := draft.Indicators[index]

	name := indicator.Name
	period := ""
	if v, ok := indicator.Options["period"]; ok {
		period = domain.FormatNumber(v)
	}
	upper := domain.FormatNumber(indicator.Thresholds.Upper)
	lower := domain.FormatNumber(indicator.Thresholds.Lower)

	names := make([]huh.Option[string], 0, len(domain.IndicatorNames()))
	for _, n := range domain.IndicatorNames() {
		names = append(names, huh.NewOption(n, n))
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Indicator Name").
				Options(names...).
				Value(&name),
			huh.NewInput().
				Title("Period (if applicable)").
				Value(&period).
				Validate(validateNumberOrEmpty),
			huh.NewInput().
				Title("Upper Threshold").
				Value(&upper).
				Validate(validateNumberOrEmpty),
			huh.NewInput().
				Title("Lower Threshold").
				Value(&lower).
				Validate(validateNumberOrEmpty),
		),
	).Run()
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("indicators.%d.", index)
	applyAll(p, map[string]string{
		prefix + "name":   name,
		prefix + "period": period,
		prefix + "upper":  upper,
		prefix + "lower":  lower,
	})
	return nil
}

func removeIndicator(p *panel.Panel) error {
	index, ok, err := pickIndicator(p, "Remove which indicator?")
	if err != nil || !ok {
		return err
	}
	return p.Composer.RemoveIndicator(index)
}

func pickIndicator(p *panel.Panel, title string) (int, bool, error) {
	draft := p.Composer.Draft()
	if len(draft.Indicators) == 0 {
		fmt.Println(messageStyle.Render("No indicators configured"))
		waitForEnter()
		return 0, false, nil
	}

	choices := make([]huh.Option[int], 0, len(draft.Indicators))
	for i, ind := range draft.Indicators {
		choices = append(choices, huh.NewOption(indicatorLabel(i, ind), i))
	}

	var index int
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Options(choices...).
				Value(&index),
		),
	).Run()
	if err != nil {
		return 0, false, err
	}
	return index, true, nil
}

// applyAll routes field writes through the composer; path errors here mean a
// programming mistake in the wizard, not user input, so they only get logged
// into the message line.
func applyAll(p *panel.Panel, fields map[string]string) {
	for path, value := range fields {
		if err := p.Composer.Apply(path, value); err != nil {
			p.SetMessage(err.Error())
		}
	}
}

func renderDraft(draft domain.StrategyConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pair: %s/%s   Quantity: %s\n",
		draft.BaseAsset, draft.QuoteAsset, domain.FormatNumber(draft.Quantity))
	fmt.Fprintf(&b, "Window: %s x %d candles\n",
		draft.HistoricalData.Timeframe, draft.HistoricalData.DataPoints)
	if len(draft.Indicators) == 0 {
		b.WriteString("Indicators: none")
	} else {
		b.WriteString("Indicators:\n")
		for i, ind := range draft.Indicators {
			fmt.Fprintf(&b, "  %s\n", indicatorLabel(i, ind))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func indicatorLabel(index int, ind domain.IndicatorConfig) string {
	name := ind.Name
	if name == "" {
		name = "(unnamed)"
	}
	label := fmt.Sprintf("%d. %s", index+1, name)
	if v, ok := ind.Options["period"]; ok {
		label += fmt.Sprintf(" period=%s", domain.FormatNumber(v))
	}
	label += fmt.Sprintf(" upper=%s lower=%s",
		domain.FormatNumber(ind.Thresholds.Upper), domain.FormatNumber(ind.Thresholds.Lower))
	return label
}

func timeframeTitle(tf domain.Timeframe) string {
	switch tf {
	case domain.Timeframe1m:
		return "1 Minute"
	case domain.Timeframe5m:
		return "5 Minutes"
	case domain.Timeframe1h:
		return "1 Hour"
	case domain.Timeframe1d:
		return "1 Day"
	}
	return string(tf)
}

func validateNumberOrEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil // clearing a field is allowed
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return fmt.Errorf("must be a number")
	}
	return nil
}

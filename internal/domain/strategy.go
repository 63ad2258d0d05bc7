package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// StrategyType tags which signal rule a backtest uses.
type StrategyType string

const (
	StrategySMACrossover     StrategyType = "SMA_CROSSOVER"
	StrategyRSIMeanReversion StrategyType = "RSI_MEAN_REVERSION"
	StrategyMACDMomentum     StrategyType = "MACD_MOMENTUM"
	StrategyBollingerBands   StrategyType = "BOLLINGER_BANDS"
	StrategyMultiIndicator   StrategyType = "MULTI_INDICATOR"
)

// StrategyTypes lists the recognised strategy types.
func StrategyTypes() []StrategyType {
	return []StrategyType{
		StrategySMACrossover,
		StrategyRSIMeanReversion,
		StrategyMACDMomentum,
		StrategyBollingerBands,
		StrategyMultiIndicator,
	}
}

// StrategyParams are the tunable inputs of the indicator engine, the signal
// rules and the risk controls. Zero values are replaced by WithDefaults.
//
// StopLoss and TakeProfit are fractions of the entry price (0.05 = 5%).
// RiskPercent is a percentage of the current balance (2 = 2%).
type StrategyParams struct {
	ShortPeriod     int     `json:"shortPeriod" yaml:"short_period" validate:"gte=1"`
	LongPeriod      int     `json:"longPeriod" yaml:"long_period" validate:"gtfield=ShortPeriod"`
	RSIPeriod       int     `json:"rsiPeriod" yaml:"rsi_period" validate:"gte=1"`
	RSIOversold     float64 `json:"rsiOversold" yaml:"rsi_oversold" validate:"gte=0,lte=100"`
	RSIOverbought   float64 `json:"rsiOverbought" yaml:"rsi_overbought" validate:"gtfield=RSIOversold,lte=100"`
	MACDFast        int     `json:"macdFast" yaml:"macd_fast" validate:"gte=1"`
	MACDSlow        int     `json:"macdSlow" yaml:"macd_slow" validate:"gtfield=MACDFast"`
	MACDSignal      int     `json:"macdSignal" yaml:"macd_signal" validate:"gte=1"`
	BollingerPeriod int     `json:"bollingerPeriod" yaml:"bollinger_period" validate:"gte=2"`
	BollingerStdDev float64 `json:"bollingerStdDev" yaml:"bollinger_std_dev" validate:"gt=0"`
	StochPeriod     int     `json:"stochPeriod" yaml:"stoch_period" validate:"gte=1"`
	ATRPeriod       int     `json:"atrPeriod" yaml:"atr_period" validate:"gte=1"`
	WilliamsPeriod  int     `json:"williamsPeriod" yaml:"williams_period" validate:"gte=1"`
	CCIPeriod       int     `json:"cciPeriod" yaml:"cci_period" validate:"gte=1"`
	StopLoss        float64 `json:"stopLoss" yaml:"stop_loss" validate:"gt=0,lt=1"`
	TakeProfit      float64 `json:"takeProfit" yaml:"take_profit" validate:"gt=0"`
	RiskPercent     float64 `json:"riskPercent" yaml:"risk_percent" validate:"gt=0,lte=100"`
}

// DefaultStrategyParams returns the parameter set used when a field is left
// unset.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		ShortPeriod:     10,
		LongPeriod:      20,
		RSIPeriod:       14,
		RSIOversold:     30,
		RSIOverbought:   70,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerPeriod: 20,
		BollingerStdDev: 2,
		StochPeriod:     14,
		ATRPeriod:       14,
		WilliamsPeriod:  14,
		CCIPeriod:       20,
		StopLoss:        0.05,
		TakeProfit:      0.10,
		RiskPercent:     2,
	}
}

// WithDefaults returns a copy of p with every zero field filled from
// DefaultStrategyParams.
func (p StrategyParams) WithDefaults() StrategyParams {
	d := DefaultStrategyParams()
	fillInt(&p.ShortPeriod, d.ShortPeriod)
	fillInt(&p.LongPeriod, d.LongPeriod)
	fillInt(&p.RSIPeriod, d.RSIPeriod)
	fillFloat(&p.RSIOversold, d.RSIOversold)
	fillFloat(&p.RSIOverbought, d.RSIOverbought)
	fillInt(&p.MACDFast, d.MACDFast)
	fillInt(&p.MACDSlow, d.MACDSlow)
	fillInt(&p.MACDSignal, d.MACDSignal)
	fillInt(&p.BollingerPeriod, d.BollingerPeriod)
	fillFloat(&p.BollingerStdDev, d.BollingerStdDev)
	fillInt(&p.StochPeriod, d.StochPeriod)
	fillInt(&p.ATRPeriod, d.ATRPeriod)
	fillInt(&p.WilliamsPeriod, d.WilliamsPeriod)
	fillInt(&p.CCIPeriod, d.CCIPeriod)
	fillFloat(&p.StopLoss, d.StopLoss)
	fillFloat(&p.TakeProfit, d.TakeProfit)
	fillFloat(&p.RiskPercent, d.RiskPercent)
	return p
}

// Lookback returns the number of leading bars needed before every indicator
// used by the signal rules yields at least two values.
func (p StrategyParams) Lookback() int {
	return max(
		p.LongPeriod,
		p.RSIPeriod+1,
		p.MACDSlow+p.MACDSignal,
		p.BollingerPeriod,
		p.StochPeriod,
		p.ATRPeriod+1,
		p.WilliamsPeriod,
		p.CCIPeriod,
	)
}

func fillInt(v *int, d int) {
	if *v == 0 {
		*v = d
	}
}

func fillFloat(v *float64, d float64) {
	if *v == 0 {
		*v = d
	}
}

// StrategyConfig is the immutable input of one backtest run.
type StrategyConfig struct {
	Name           string         `json:"name" yaml:"name"`
	Symbol         string         `json:"symbol" yaml:"symbol" validate:"required,max=16"`
	Timeframe      string         `json:"timeframe" yaml:"timeframe"` // lookback period, e.g. "1y"
	Interval       string         `json:"interval" yaml:"interval"`   // bar size, e.g. "1d"
	InitialBalance float64        `json:"initialBalance" yaml:"initial_balance" validate:"gt=0"`
	Strategy       StrategyType   `json:"strategy" yaml:"strategy"`
	Parameters     StrategyParams `json:"parameters" yaml:"parameters"`
	Commission     float64        `json:"commission" yaml:"commission" validate:"gte=0"`
}

// Normalized returns a copy of c with defaults applied and the symbol
// upper-cased.
func (c StrategyConfig) Normalized() StrategyConfig {
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
	c.Parameters = c.Parameters.WithDefaults()
	if c.Timeframe == "" {
		c.Timeframe = "1y"
	}
	if c.Interval == "" {
		c.Interval = "1d"
	}
	if c.Name == "" {
		c.Name = fmt.Sprintf("%s %s", c.Symbol, c.Strategy)
	}
	return c
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges. It does not reject unknown strategy types:
// those run to completion without producing signals.
func (c StrategyConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

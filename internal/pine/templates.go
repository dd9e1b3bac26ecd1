package pine

// The templates below mirror the Go strategies' threshold rules in Pine v5.
// Two gaps against the backtest are documented in each header where they
// apply: the charting platform has no perpetual funding rate series, and
// multi-instrument testing is done by hand by switching the chart symbol.

const fundingCrossoverTemplate = `//@version=5
// funding_crossover
// NOTE: the charting platform has no funding rate series, so the funding
// flip condition from the backtest is omitted below. Entries will fire more
// often here than in the simulation.
// NOTE: test additional instruments by switching the chart symbol.
strategy("funding_crossover", overlay=true, initial_capital=10000, default_qty_type=strategy.cash)

emaPeriod    = input.int({{.EmaPeriod}}, "EMA period")
volumePeriod = input.int({{.VolumePeriod}}, "Volume SMA period")
volumeMult   = input.float({{num .VolumeMult}}, "Volume multiplier")
trailPercent = input.float({{num .TrailPercent}}, "Trailing stop fraction")
takeProfit   = input.float({{num .TakeProfitPercent}}, "Take profit fraction")
maxHoldBars  = input.int({{.MaxHoldBars}}, "Max holding bars")
riskFraction = input.float({{num .RiskFraction}}, "Risk fraction")

emaValue = ta.ema(close, emaPeriod)
volAvg   = ta.sma(volume, volumePeriod)

crossedUp = close[1] <= emaValue[1] and close > emaValue
volumeOk  = volume > volumeMult * volAvg
// fundingFlipped = funding[1] >= 0 and funding < 0  // no funding series

enterLong = crossedUp and volumeOk and strategy.position_size == 0

stopDistance = close * trailPercent
qty = stopDistance > 0 ? strategy.equity * riskFraction / stopDistance : 0

if enterLong and qty > 0
    strategy.entry("long", strategy.long, qty=qty)

var float maxHigh = na
var int barsHeld = 0

if strategy.position_size > 0
    maxHigh := na(maxHigh) ? high : math.max(maxHigh, high)
    barsHeld += 1
    entryPrice = strategy.position_avg_price
    if low <= maxHigh * (1 - trailPercent)
        strategy.close("long", comment="trailing_stop")
    else if close >= entryPrice * (1 + takeProfit)
        strategy.close("long", comment="take_profit")
    else if barsHeld >= maxHoldBars
        strategy.close("long", comment="time_exit")
else
    maxHigh := na
    barsHeld := 0
`

const confluentOversoldTemplate = `//@version=5
// confluent_oversold
// NOTE: test additional instruments by switching the chart symbol.
strategy("confluent_oversold", overlay=true, initial_capital=10000, default_qty_type=strategy.cash)

stochFastK    = input.int({{.StochFastK}}, "Stochastic fast K period")
stochSlowK    = input.int({{.StochSlowK}}, "Stochastic slow K period")
stochSlowD    = input.int({{.StochSlowD}}, "Stochastic slow D period")
stochOversold = input.float({{num .StochOversold}}, "Stochastic oversold level")
cciPeriod     = input.int({{.CciPeriod}}, "CCI period")
cciOversold   = input.float({{num .CciOversold}}, "CCI oversold level")
volumePeriod  = input.int({{.VolumePeriod}}, "Volume SMA period")
obvWindow     = input.int({{.ObvWindow}}, "OBV window")
takeProfit    = input.float({{num .TakeProfitPercent}}, "Take profit fraction")
stopLoss      = input.float({{num .StopLossPercent}}, "Stop loss fraction")
breakeven     = input.float({{num .BreakevenTrigger}}, "Breakeven trigger fraction")
riskFraction  = input.float({{num .RiskFraction}}, "Risk fraction")

fastK = ta.stoch(close, high, low, stochFastK)
slowK = ta.sma(fastK, stochSlowK)
slowD = ta.sma(slowK, stochSlowD)
cciValue = ta.cci(close, cciPeriod)
volAvg = ta.sma(volume, volumePeriod)
obvValue = ta.obv

oversold    = slowK < stochOversold
declining   = slowD < slowD[1]
cciDeep     = cciValue < cciOversold
volumeDry   = volume < volAvg

enterLong = oversold and declining and cciDeep and volumeDry and strategy.position_size == 0

stopDistance = close * stopLoss
qty = stopDistance > 0 ? strategy.equity * riskFraction / stopDistance : 0

if enterLong and qty > 0
    strategy.entry("long", strategy.long, qty=qty)

var float minLow = na
var float minObv = na

if strategy.position_size > 0
    entryPrice = strategy.position_avg_price
    minLow := na(minLow) ? low : math.min(minLow, low)
    minObv := na(minObv) ? obvValue : math.min(minObv, obvValue)
    stopPrice = close >= entryPrice * (1 + breakeven) ? entryPrice : entryPrice * (1 - stopLoss)
    obvDivergence = low <= minLow and obvValue > minObv
    if close >= entryPrice * (1 + takeProfit)
        strategy.close("long", comment="take_profit")
    else if low <= stopPrice
        strategy.close("long", comment="stop_loss")
    else if obvDivergence
        strategy.close("long", comment="obv_divergence")
else
    minLow := na
    minObv := na
`

const opportunisticMakerTemplate = `//@version=5
// opportunistic_maker
// NOTE: the backtest rests a bid and an ask at once and caps concurrent
// quotes; Pine keeps one position per direction so both quotes are expressed
// as paired limit entries with their own brackets.
// NOTE: test additional instruments by switching the chart symbol.
strategy("opportunistic_maker", overlay=true, initial_capital=10000, default_qty_type=strategy.cash)

volumePeriod = input.int({{.VolumePeriod}}, "Volume SMA period")
volumeMult   = input.float({{num .VolumeMult}}, "Volume multiplier")
atrPeriod    = input.int({{.AtrPeriod}}, "ATR period")
maxAtrRatio  = input.float({{num .MaxAtrRatio}}, "Max ATR to price ratio")
spreadPeriod = input.int({{.SpreadPeriod}}, "Spread proxy period")
spreadMult   = input.float({{num .SpreadMult}}, "Spread multiplier")
adxPeriod    = input.int({{.AdxPeriod}}, "ADX period")
maxAdx       = input.float({{num .MaxAdx}}, "Max ADX")
offsetAtr    = input.float({{num .OffsetAtr}}, "Limit offset in ATRs")
stopAtr      = input.float({{num .StopAtr}}, "Stop loss in ATRs")
targetAtr    = input.float({{num .TargetAtr}}, "Take profit in ATRs")
riskFraction = input.float({{num .RiskFraction}}, "Risk fraction")

volAvg    = ta.sma(volume, volumePeriod)
atrValue  = ta.atr(atrPeriod)
spreadAvg = ta.sma((high - low) / close, spreadPeriod)
[_, _, adxValue] = ta.dmi(adxPeriod, adxPeriod)

volumeSpike = volume > volumeMult * volAvg
calmMarket  = atrValue / close < maxAtrRatio
wideRange   = (high - low) / close > spreadMult * spreadAvg
noTrend     = adxValue < maxAdx

setup = volumeSpike and calmMarket and wideRange and noTrend

stopDistance = stopAtr * atrValue
qty = stopDistance > 0 ? strategy.equity * riskFraction / stopDistance : 0

if setup and qty > 0 and strategy.position_size == 0
    bid = close - offsetAtr * atrValue
    ask = close + offsetAtr * atrValue
    strategy.entry("bid", strategy.long, qty=qty, limit=bid)
    strategy.exit("bid_exit", "bid", stop=bid - stopDistance, limit=bid + targetAtr * atrValue)
    strategy.entry("ask", strategy.short, qty=qty, limit=ask)
    strategy.exit("ask_exit", "ask", stop=ask + stopDistance, limit=ask - targetAtr * atrValue)
`

const nicheCostReversalTemplate = `//@version=5
// niche_cost_reversal
// NOTE: test additional instruments by switching the chart symbol.
strategy("niche_cost_reversal", overlay=true, initial_capital=10000, default_qty_type=strategy.cash)

emaPeriod     = input.int({{.EmaPeriod}}, "EMA period")
stdDevPeriod  = input.int({{.StdDevPeriod}}, "StdDev period")
bandMult      = input.float({{num .BandMult}}, "Band multiplier")
rsiPeriod     = input.int({{.RsiPeriod}}, "RSI period")
rsiOversold   = input.float({{num .RsiOversold}}, "RSI oversold threshold")
rsiOverbought = input.float({{num .RsiOverbought}}, "RSI overbought threshold")
volumePeriod  = input.int({{.VolumePeriod}}, "Volume SMA period")
stopPercent   = input.float({{num .StopPercent}}, "Stop distance fraction")
targetPercent = input.float({{num .TargetPercent}}, "Target distance fraction")
maxHoldBars   = input.int({{.MaxHoldBars}}, "Max bars to hold")
riskFraction  = input.float({{num .RiskFraction}}, "Risk fraction")

emaValue = ta.ema(close, emaPeriod)
stdDev   = ta.stdev(close, stdDevPeriod)
rsiValue = ta.rsi(close, rsiPeriod)
volAvg   = ta.sma(volume, volumePeriod)

lowerBand = emaValue - bandMult * stdDev

stretched      = close < lowerBand
washedOut      = rsiValue < rsiOversold
volumeConfirms = volume > volAvg

enterLong = stretched and washedOut and volumeConfirms and strategy.position_size == 0

stopDistance = close * stopPercent
qty = stopDistance > 0 ? strategy.equity * riskFraction / stopDistance : 0

if enterLong and qty > 0
    strategy.entry("long", strategy.long, qty=qty)

var int barsHeld = 0

if strategy.position_size > 0
    barsHeld += 1
    entryPrice = strategy.position_avg_price
    if low <= entryPrice * (1 - stopPercent)
        strategy.close("long", comment="stop_loss")
    else if close >= entryPrice * (1 + targetPercent)
        strategy.close("long", comment="take_profit")
    else if close > emaValue
        strategy.close("long", comment="ema_reclaim")
    else if rsiValue > rsiOverbought
        strategy.close("long", comment="rsi_overbought")
    else if barsHeld >= maxHoldBars
        strategy.close("long", comment="time_exit")
else
    barsHeld := 0
`

const correlativeReversionTemplate = `//@version=5
// correlative_reversion
// NOTE: test additional instruments by switching the chart symbol.
strategy("correlative_reversion", overlay=false, initial_capital=10000, default_qty_type=strategy.cash)

lookback     = input.int({{.LookbackPeriod}}, "Lookback period")
entryZ       = input.float({{num .EntryZ}}, "Entry z-score")
exitZ        = input.float({{num .ExitZ}}, "Exit z-score")
stopZ        = input.float({{num .StopZ}}, "Stop z-score")
riskFraction = input.float({{num .RiskFraction}}, "Risk fraction")
stopDistPct  = input.float({{num .StopDistancePercent}}, "Sizing stop distance fraction")

mean   = ta.sma(close, lookback)
stdDev = ta.stdev(close, lookback)
zScore = stdDev > 0 ? (close - mean) / stdDev : 0.0

plot(zScore, "z-score")
hline(0)

stopDistance = close * stopDistPct
qty = stopDistance > 0 ? strategy.equity * riskFraction / stopDistance : 0

if strategy.position_size == 0 and qty > 0
    if zScore < -entryZ
        strategy.entry("long", strategy.long, qty=qty)
    else if zScore > entryZ
        strategy.entry("short", strategy.short, qty=qty)

if strategy.position_size > 0
    if zScore < -stopZ
        strategy.close("long", comment="stop_loss")
    else if math.abs(zScore) < exitZ
        strategy.close("long", comment="reversion_exit")

if strategy.position_size < 0
    if zScore > stopZ
        strategy.close("short", comment="stop_loss")
    else if math.abs(zScore) < exitZ
        strategy.close("short", comment="reversion_exit")
`

const holisticDecompositionTemplate = `//@version=5
// holistic_decomposition
// NOTE: stop and target are frozen from the ATR at entry; the stop order is
// evaluated before the target, matching the simulation's exit ordering.
// NOTE: test additional instruments by switching the chart symbol.
strategy("holistic_decomposition", overlay=true, initial_capital=10000, default_qty_type=strategy.cash)

fastEmaPeriod = input.int({{.FastEmaPeriod}}, "Fast EMA period")
slowEmaPeriod = input.int({{.SlowEmaPeriod}}, "Slow EMA period")
rsiPeriod     = input.int({{.RsiPeriod}}, "RSI period")
rsiLong       = input.float({{num .RsiLongThreshold}}, "RSI long threshold")
rsiShort      = input.float({{num .RsiShortThreshold}}, "RSI short threshold")
volumePeriod  = input.int({{.VolumePeriod}}, "Volume SMA period")
volumeMult    = input.float({{num .VolumeMult}}, "Volume multiplier")
atrPeriod     = input.int({{.AtrPeriod}}, "ATR period")
stopAtr       = input.float({{num .StopAtr}}, "Stop distance in ATRs")
targetMult    = input.float({{num .TargetMult}}, "Target to stop ratio")
riskFraction  = input.float({{num .RiskFraction}}, "Risk fraction")

fastEma  = ta.ema(close, fastEmaPeriod)
slowEma  = ta.ema(close, slowEmaPeriod)
rsiValue = ta.rsi(close, rsiPeriod)
volAvg   = ta.sma(volume, volumePeriod)
atrValue = ta.atr(atrPeriod)

volumePush = volume > volumeMult * volAvg
longSetup  = close > fastEma and fastEma > slowEma and rsiValue > rsiLong and volumePush
shortSetup = close < fastEma and fastEma < slowEma and rsiValue < rsiShort and volumePush

stopDistance = stopAtr * atrValue
qty = stopDistance > 0 ? strategy.equity * riskFraction / stopDistance : 0

if strategy.position_size == 0 and qty > 0
    if longSetup
        strategy.entry("long", strategy.long, qty=qty)
        strategy.exit("long_exit", "long", stop=close - stopDistance, limit=close + targetMult * stopDistance)
    else if shortSetup
        strategy.entry("short", strategy.short, qty=qty)
        strategy.exit("short_exit", "short", stop=close + stopDistance, limit=close - targetMult * stopDistance)
`

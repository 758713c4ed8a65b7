package sector

// Sector tags for the static asset taxonomy
const (
	SectorLargeCap   = "large_cap"
	SectorLayer1     = "layer1"
	SectorLayer2     = "layer2"
	SectorDeFi       = "defi"
	SectorMeme       = "meme"
	SectorStablecoin = "stablecoin"
	SectorOther      = "other"
)

// symbolTaxonomy maps trading symbols to their sector tag. Symbols not in
// the table fall into SectorOther, which still gets capped.
var symbolTaxonomy = map[string]string{
	"BTC": SectorLargeCap,
	"ETH": SectorLargeCap,

	"SOL":  SectorLayer1,
	"AVAX": SectorLayer1,
	"ADA":  SectorLayer1,
	"DOT":  SectorLayer1,
	"NEAR": SectorLayer1,
	"ATOM": SectorLayer1,

	"MATIC": SectorLayer2,
	"ARB":   SectorLayer2,
	"OP":    SectorLayer2,

	"UNI":  SectorDeFi,
	"AAVE": SectorDeFi,
	"COMP": SectorDeFi,
	"MKR":  SectorDeFi,
	"CRV":  SectorDeFi,
	"LDO":  SectorDeFi,

	"DOGE": SectorMeme,
	"SHIB": SectorMeme,
	"PEPE": SectorMeme,

	"USDT": SectorStablecoin,
	"USDC": SectorStablecoin,
	"DAI":  SectorStablecoin,
}

// correlatedSectors declares which sectors move together. A new position
// must keep the combined exposure of its sector plus these peers under the
// correlated-group cap.
var correlatedSectors = map[string][]string{
	SectorLargeCap: {SectorLayer1, SectorLayer2},
	SectorLayer1:   {SectorLargeCap, SectorLayer2, SectorDeFi},
	SectorLayer2:   {SectorLargeCap, SectorLayer1},
	SectorDeFi:     {SectorLayer1},
	SectorMeme:     {SectorLayer1},
}

// SectorFor maps a symbol to its sector tag
func SectorFor(symbol string) string {
	if s, ok := symbolTaxonomy[symbol]; ok {
		return s
	}
	return SectorOther
}

// CorrelatedPeers returns the statically-declared correlated peers of a
// sector. Sectors without declared peers correlate with nothing.
func CorrelatedPeers(sector string) []string {
	return correlatedSectors[sector]
}

package normalize

// Token tables for the canonicalization pipeline. All entries are
// lowercase. The synonym table must be a fixed point over its own values:
// mapping a canonical token returns the token unchanged.

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "am": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "can": {}, "could": {}, "should": {}, "shall": {},
	"may": {}, "might": {}, "must": {}, "i": {}, "im": {}, "me": {}, "my": {},
	"we": {}, "our": {}, "us": {}, "you": {}, "your": {}, "it": {}, "its": {},
	"they": {}, "them": {}, "their": {}, "he": {}, "she": {}, "his": {}, "her": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "there": {}, "here": {},
	"what": {}, "whats": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"whom": {}, "why": {}, "how": {}, "much": {}, "many": {}, "and": {}, "or": {},
	"but": {}, "if": {}, "then": {}, "than": {}, "as": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "from": {}, "by": {}, "with": {},
	"about": {}, "into": {}, "over": {}, "under": {}, "again": {}, "further": {},
	"please": {}, "tell": {}, "give": {}, "show": {}, "find": {}, "know": {},
	"need": {}, "want": {}, "like": {}, "some": {}, "any": {}, "lot": {},
	"right": {}, "now": {}, "just": {}, "really": {}, "very": {}, "so": {},
	"too": {}, "today": {}, "currently": {}, "vs": {}, "versus": {},
}

// synonyms folds surface variants onto canonical tokens. Plural folding is
// limited to this explicit table; no general stemming.
var synonyms = map[string]string{
	// transactions
	"purchase": "buy", "purchasing": "buy", "purchases": "buy",
	"buying": "buy", "buys": "buy", "bought": "buy", "acquire": "buy",
	"selling": "sell", "sells": "sell",
	"renting": "rent", "rented": "rent", "rental": "rent", "rentals": "rent",
	// dwellings
	"home": "house", "homes": "house", "houses": "house",
	"properties": "property", "condos": "condo", "apartments": "apartment",
	"residence": "house", "residences": "house",
	// market vocabulary
	"prices": "price", "pricing": "price", "costs": "cost", "values": "value",
	"markets": "market", "rates": "rate", "listings": "listing",
	"trends": "trend", "forecasts": "forecast", "sales": "sale",
	"mortgages": "mortgage", "comparables": "comparable",
	"timing": "time",
}

// stateAbbrevs maps unambiguous two-letter postal codes to full state
// names. Codes that collide with common English words or real-estate
// vocabulary (IN, OR, ME, HI, OK, OH, DE, ID, MA, MO, LA, MT, CO, VA, AL,
// MI) are deliberately absent.
var stateAbbrevs = map[string]string{
	"ak": "alaska", "az": "arizona", "ar": "arkansas", "ca": "california",
	"ct": "connecticut", "fl": "florida", "ga": "georgia", "ia": "iowa",
	"il": "illinois", "ks": "kansas", "ky": "kentucky", "md": "maryland",
	"mn": "minnesota", "ms": "mississippi", "nc": "north-carolina",
	"nd": "north-dakota", "ne": "nebraska", "nh": "new-hampshire",
	"nj": "new-jersey", "nm": "new-mexico", "nv": "nevada", "ny": "new-york",
	"pa": "pennsylvania", "ri": "rhode-island", "sc": "south-carolina",
	"sd": "south-dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "wa": "washington", "wi": "wisconsin",
	"wv": "west-virginia", "wy": "wyoming",
}

// stateNames is the full set of canonical state tokens (multiword states
// fused with hyphens). Used to detect location tokens.
var stateNames = map[string]struct{}{
	"alabama": {}, "alaska": {}, "arizona": {}, "arkansas": {},
	"california": {}, "colorado": {}, "connecticut": {}, "delaware": {},
	"florida": {}, "georgia": {}, "hawaii": {}, "idaho": {}, "illinois": {},
	"indiana": {}, "iowa": {}, "kansas": {}, "kentucky": {}, "louisiana": {},
	"maine": {}, "maryland": {}, "massachusetts": {}, "michigan": {},
	"minnesota": {}, "mississippi": {}, "missouri": {}, "montana": {},
	"nebraska": {}, "nevada": {}, "new-hampshire": {}, "new-jersey": {},
	"new-mexico": {}, "new-york": {}, "north-carolina": {},
	"north-dakota": {}, "ohio": {}, "oklahoma": {}, "oregon": {},
	"pennsylvania": {}, "rhode-island": {}, "south-carolina": {},
	"south-dakota": {}, "tennessee": {}, "texas": {}, "utah": {},
	"vermont": {}, "virginia": {}, "washington": {}, "west-virginia": {},
	"wisconsin": {}, "wyoming": {},
}

// multiwordStates fuses adjacent token pairs into canonical state tokens.
var multiwordStates = map[string]string{
	"new hampshire":  "new-hampshire",
	"new jersey":     "new-jersey",
	"new mexico":     "new-mexico",
	"new york":       "new-york",
	"north carolina": "north-carolina",
	"north dakota":   "north-dakota",
	"rhode island":   "rhode-island",
	"south carolina": "south-carolina",
	"south dakota":   "south-dakota",
	"west virginia":  "west-virginia",
}

// marketTerms decide the market_data category: queries about live market
// facts go stale fast and get the short TTL.
var marketTerms = map[string]struct{}{
	"price": {}, "cost": {}, "value": {}, "worth": {}, "market": {},
	"inventory": {}, "listing": {}, "rent": {}, "rate": {}, "mortgage": {},
	"trend": {}, "forecast": {}, "median": {}, "average": {}, "sale": {},
	"sold": {}, "appreciation": {}, "comps": {}, "comparable": {},
	"sqft": {}, "affordability": {},
}

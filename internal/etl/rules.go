package etl

// RuleKind tags a field-level normalization rule.
type RuleKind int

const (
	// RuleParseDate parses Field from the wire timestamp format.
	RuleParseDate RuleKind = iota
	// RuleLowercaseEmail lower-cases Field.
	RuleLowercaseEmail
	// RuleComputeTax sets Out to Field * Rate.
	RuleComputeTax
	// RuleFlattenList joins the elements of list Field with Sep.
	RuleFlattenList
)

func (k RuleKind) String() string {
	switch k {
	case RuleParseDate:
		return "ParseDate"
	case RuleLowercaseEmail:
		return "LowercaseEmail"
	case RuleComputeTax:
		return "ComputeTax"
	case RuleFlattenList:
		return "FlattenList"
	default:
		return "Unknown"
	}
}

// Rule is one entry of a stream's rule list. Which fields are meaningful
// depends on Kind.
type Rule struct {
	Kind  RuleKind
	Field string
	Rate  string
	Out   string
	Sep   string
}

func ParseDate(field string) Rule {
	return Rule{Kind: RuleParseDate, Field: field}
}

func LowercaseEmail(field string) Rule {
	return Rule{Kind: RuleLowercaseEmail, Field: field}
}

func ComputeTax(subtotalField, rateField, outField string) Rule {
	return Rule{Kind: RuleComputeTax, Field: subtotalField, Rate: rateField, Out: outField}
}

func FlattenList(field, sep string) Rule {
	return Rule{Kind: RuleFlattenList, Field: field, Sep: sep}
}

// RuleTable maps a stream id to its ordered rules. Streams missing from the
// table pass through unchanged.
type RuleTable map[string][]Rule

// DefaultRules is the normalization applied to the NetSuite streams.
func DefaultRules() RuleTable {
	return RuleTable{
		"Customer": {
			ParseDate("lastModifiedDate"),
			ParseDate("dateCreated"),
			LowercaseEmail("email"),
			FlattenList("categories", ListSeparator),
		},
		"SalesOrder": {
			ParseDate("lastModifiedDate"),
			ParseDate("createdDate"),
			ParseDate("tranDate"),
			ParseDate("shipDate"),
			ComputeTax("subTotal", "taxRate", "totalTax"),
			FlattenList("items", ListSeparator),
		},
	}
}

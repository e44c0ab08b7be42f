package pattern

import "github.com/Veraticus/spice-ledger/internal/model"

// DefaultRules returns the built-in rules. Transfers rank above everything so a
// card payment is never booked as spending.
func DefaultRules() []Rule {
	return []Rule{
		// Transfers
		{
			Name:            "Account Transfer",
			MerchantPattern: `\b(TRANSFER|XFER|TFR|MOVE\s*MONEY|ACCOUNT\s*TO\s*ACCOUNT)\b`,
			IsRegex:         true,
			Skip:            true,
			Priority:        100,
			Confidence:      0.85,
		},
		{
			Name:            "Credit Card Payment",
			MerchantPattern: `\b(CC\s*PAYMENT|CREDIT\s*CARD\s*PAY|CARD\s*PAYMENT|PMT\s*TO)\b`,
			IsRegex:         true,
			Skip:            true,
			Priority:        95,
			Confidence:      0.80,
		},
		{
			Name:            "Savings Transfer",
			MerchantPattern: `\b(TO\s*SAVINGS|FROM\s*SAVINGS|SAVINGS\s*TRANSFER|401K|ROTH\s*IRA)\b`,
			IsRegex:         true,
			Skip:            true,
			Priority:        95,
			Confidence:      0.80,
		},

		// Spending
		{
			Name:            "Rideshare and Transit",
			MerchantPattern: `\b(UBER|LYFT|METRO|TRANSIT|MTA|BART|PARKING|TOLL)\b`,
			IsRegex:         true,
			Category:        model.CategoryTransport,
			Priority:        60,
			Confidence:      0.85,
		},
		{
			Name:            "Fuel",
			MerchantPattern: `\b(SHELL|CHEVRON|EXXON|MOBIL|BP|ARCO|FUEL|GAS\s*STATION)\b`,
			IsRegex:         true,
			Category:        model.CategoryTransport,
			Priority:        55,
			Confidence:      0.80,
		},
		{
			Name:            "Dining",
			MerchantPattern: `\b(RESTAURANT|CAFE|COFFEE|STARBUCKS|PIZZA|TAQUERIA|BAKERY|DOORDASH|GRUBHUB|UBER\s*EATS)\b`,
			IsRegex:         true,
			Category:        model.CategoryFood,
			Priority:        65,
			Confidence:      0.80,
		},
		{
			Name:            "Groceries",
			MerchantPattern: `\b(GROCERY|SAFEWAY|KROGER|TRADER\s*JOE|WHOLE\s*FOODS|ALDI|MARKET)\b`,
			IsRegex:         true,
			Category:        model.CategoryFood,
			Priority:        50,
			Confidence:      0.75,
		},
		{
			Name:            "Utilities",
			MerchantPattern: `\b(ELECTRIC|POWER|WATER|COMCAST|XFINITY|VERIZON|AT&T|T-MOBILE|INTERNET|PG&E)\b`,
			IsRegex:         true,
			Category:        model.CategoryUtilities,
			Priority:        50,
			Confidence:      0.80,
		},
		{
			Name:            "Streaming and Events",
			MerchantPattern: `\b(NETFLIX|SPOTIFY|HULU|DISNEY|HBO|STEAM|CINEMA|THEATER|TICKETMASTER)\b`,
			IsRegex:         true,
			Category:        model.CategoryEntertainment,
			Priority:        50,
			Confidence:      0.85,
		},
		{
			Name:            "Pharmacy and Care",
			MerchantPattern: `\b(PHARMACY|CVS|WALGREENS|RITE\s*AID|CLINIC|DENTAL|MEDICAL|HOSPITAL)\b`,
			IsRegex:         true,
			Category:        model.CategoryHealth,
			Priority:        50,
			Confidence:      0.80,
		},
		{
			Name:            "Retail",
			MerchantPattern: `\b(AMAZON|AMZN|TARGET|WALMART|COSTCO|BEST\s*BUY|IKEA|ETSY)\b`,
			IsRegex:         true,
			Category:        model.CategoryShopping,
			Priority:        40,
			Confidence:      0.70,
		},
		{
			Name:            "Fees",
			MerchantPattern: `\b(FEE|SERVICE\s*CHG|PENALTY|ATM)\b`,
			IsRegex:         true,
			Category:        model.CategoryOther,
			Priority:        30,
			Confidence:      0.70,
		},
	}
}

package explain

import (
	"fmt"
	"strings"
)

// fallbacks are served when the generator is disabled or out of quota.
// Keys are lowercased terms.
var fallbacks = map[string]string{
	"stock":           "A stock represents ownership in a company. When you buy stock, you become a shareholder and own a piece of that business.",
	"dividend":        "A dividend is a payment made by companies to their shareholders, usually from profits. It's like getting a bonus for owning the stock.",
	"p/e ratio":       "The Price-to-Earnings ratio compares a company's stock price to its earnings per share. It helps investors determine if a stock is expensive or cheap.",
	"market cap":      "Market capitalization is the total value of a company's shares. It's calculated by multiplying the stock price by the number of shares outstanding.",
	"bull market":     "A bull market is a period when stock prices are rising and investor confidence is high. It's called 'bull' because bulls attack upward.",
	"bear market":     "A bear market is a period when stock prices are falling by 20% or more. It's called 'bear' because bears attack downward.",
	"volatility":      "Volatility measures how much a stock's price moves up and down. High volatility means the price changes a lot, low volatility means it's more stable.",
	"portfolio":       "A portfolio is your collection of investments like stocks, bonds, and other assets. Diversifying your portfolio helps reduce risk.",
	"eps":             "Earnings Per Share (EPS) is a company's profit divided by the number of shares. It shows how much money the company makes for each share.",
	"roe":             "Return on Equity (ROE) measures how efficiently a company uses shareholders' money to generate profits. Higher ROE is generally better.",
	"liquidity":       "Liquidity refers to how easily you can buy or sell an investment without affecting its price. Cash is the most liquid asset.",
	"diversification": "Diversification means spreading your investments across different types of assets to reduce risk. Don't put all your eggs in one basket.",
	"day trading":     "Day trading involves buying and selling stocks within the same trading day. It's risky and requires significant time and knowledge.",
	"buy and hold":    "Buy and hold is a long-term investment strategy where you purchase stocks and keep them for years, regardless of market fluctuations.",
}

// Key normalizes a term for lookup and storage.
func Key(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Fallback returns the canned explanation for term, or a generic notice
// naming the term when none exists.
func Fallback(term string) string {
	if text, ok := fallbacks[Key(term)]; ok {
		return text
	}
	return fmt.Sprintf("%s is an important financial concept. Due to high demand, detailed AI explanations are temporarily limited. Please try again later or search for this term online for more information.", strings.TrimSpace(term))
}

// Unavailable is returned to the caller, and never stored, when generation
// fails for a reason other than quota.
func Unavailable(term string) string {
	return fmt.Sprintf("Sorry, I couldn't explain '%s' at the moment. Please try again later.", strings.TrimSpace(term))
}

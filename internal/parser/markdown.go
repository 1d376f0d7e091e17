// Package parser turns free-form model output into a structured plan
// record. It is best-effort text scraping: unknown lines are dropped and
// parsing never fails, it only falls back to the raw text.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type PlanRecord struct {
	Title        string   `json:"title,omitempty"`
	Days         []Day    `json:"days"`
	ShoppingList []string `json:"shopping_list,omitempty"`
	PrepTips     []string `json:"prep_tips,omitempty"`
}

type Day struct {
	Label    string `json:"label"`
	Calories int    `json:"calories,omitempty"`
	Meals    []Meal `json:"meals"`
}

type Meal struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Calories    int      `json:"calories,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// Result is a tagged parse outcome: either Record is set, or the caller
// should persist Raw verbatim. Never both empty.
type Result struct {
	Record *PlanRecord
	Raw    string
}

// Parsed reports whether structured data was recovered.
func (r Result) Parsed() bool {
	return r.Record != nil
}

var (
	dayRe   = regexp.MustCompile(`(?i)^(?:#{1,4}\s*|\*\*\s*)?day\s+(\d+)`)
	titleRe = regexp.MustCompile(`^#\s+(.+)`)

	// The four meal-header shapes models actually produce:
	//   ### Breakfast        **Breakfast:** oatmeal
	//   - Breakfast: oatmeal Breakfast: oatmeal
	mealHeadingRe = regexp.MustCompile(`(?i)^#{2,4}\s*(breakfast|lunch|dinner|snacks?)\b\s*[:\-]?\s*(.*)`)
	mealBoldRe    = regexp.MustCompile(`(?i)^\*\*\s*(breakfast|lunch|dinner|snacks?)\s*:?\s*\*\*\s*:?\s*(.*)`)
	mealBulletRe  = regexp.MustCompile(`(?i)^[-*]\s+\*{0,2}(breakfast|lunch|dinner|snacks?)\*{0,2}\s*[:\-]\s*(.*)`)
	mealPlainRe   = regexp.MustCompile(`(?i)^(breakfast|lunch|dinner|snacks?)\s*:\s*(.*)`)

	calorieRe  = regexp.MustCompile(`(?i)(\d[\d,]*)\s*(?:kcal|cal\b|calories)`)
	bulletRe   = regexp.MustCompile(`^\s*[-*•]\s+(.+)`)
	shoppingRe = regexp.MustCompile(`(?i)^(?:#{1,4}\s*|\*\*\s*)?shopping\s+list`)
	prepRe     = regexp.MustCompile(`(?i)^(?:#{1,4}\s*|\*\*\s*)?(?:meal\s+)?prep\s+tips?`)
)

type section int

const (
	sectionDays section = iota
	sectionShopping
	sectionPrep
)

// Parse attempts a JSON parse first, then falls back to a line-oriented
// markdown scan. The result is Unparsed only when JSON fails and no day
// section was recognized.
func Parse(raw string) Result {
	if rec, ok := parseJSON(raw); ok {
		return Result{Record: rec, Raw: raw}
	}

	rec := parseMarkdown(raw)
	if len(rec.Days) == 0 {
		return Result{Raw: raw}
	}
	return Result{Record: rec, Raw: raw}
}

// Serialize renders a record back to its canonical JSON form.
func Serialize(rec *PlanRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to serialize plan record: %w", err)
	}
	return string(data), nil
}

// parseJSON extracts the outermost JSON object from the text. Models
// routinely wrap JSON in prose or code fences, so everything outside the
// first '{' and last '}' is ignored. A decoded record with no content is
// rejected: markdown output can embed stray JSON fragments (macro
// breakdowns, inline examples) that must not shadow the markdown scan.
func parseJSON(raw string) (*PlanRecord, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	var rec PlanRecord
	if err := json.Unmarshal([]byte(raw[start:end+1]), &rec); err != nil {
		return nil, false
	}
	if rec.Title == "" && len(rec.Days) == 0 && len(rec.ShoppingList) == 0 && len(rec.PrepTips) == 0 {
		return nil, false
	}
	return &rec, true
}

func parseMarkdown(raw string) *PlanRecord {
	rec := &PlanRecord{}
	sec := sectionDays
	curDay := -1
	curMeal := -1

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case shoppingRe.MatchString(trimmed):
			sec = sectionShopping
			continue
		case prepRe.MatchString(trimmed):
			sec = sectionPrep
			continue
		}

		if m := dayRe.FindStringSubmatch(trimmed); m != nil {
			rec.Days = append(rec.Days, Day{Label: "Day " + m[1]})
			sec = sectionDays
			curDay = len(rec.Days) - 1
			curMeal = -1
			continue
		}

		if sec == sectionDays && curDay >= 0 {
			if name, desc, ok := matchMealHeader(trimmed); ok {
				day := &rec.Days[curDay]
				day.Meals = append(day.Meals, Meal{Name: name, Description: desc})
				curMeal = len(day.Meals) - 1
				continue
			}
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			item := cleanItem(m[1])
			switch sec {
			case sectionShopping:
				rec.ShoppingList = append(rec.ShoppingList, item)
			case sectionPrep:
				rec.PrepTips = append(rec.PrepTips, item)
			case sectionDays:
				if curDay >= 0 && curMeal >= 0 {
					meal := &rec.Days[curDay].Meals[curMeal]
					if cal, ok := calorieFigure(item); ok && meal.Calories == 0 && looksLikeCalorieLine(item) {
						meal.Calories = cal
					} else {
						meal.Ingredients = append(meal.Ingredients, item)
					}
				}
			}
			continue
		}

		if m := titleRe.FindStringSubmatch(trimmed); m != nil && rec.Title == "" {
			rec.Title = cleanItem(m[1])
			continue
		}

		if cal, ok := calorieFigure(trimmed); ok && sec == sectionDays && curDay >= 0 {
			if curMeal >= 0 && rec.Days[curDay].Meals[curMeal].Calories == 0 {
				rec.Days[curDay].Meals[curMeal].Calories = cal
			} else if rec.Days[curDay].Calories == 0 {
				rec.Days[curDay].Calories = cal
			}
			continue
		}

		// Anything else is dropped.
	}

	return rec
}

// matchMealHeader tries the four accepted meal header variants in order.
func matchMealHeader(line string) (name, desc string, ok bool) {
	for _, re := range []*regexp.Regexp{mealHeadingRe, mealBoldRe, mealBulletRe, mealPlainRe} {
		if m := re.FindStringSubmatch(line); m != nil {
			return canonicalMealName(m[1]), cleanItem(m[2]), true
		}
	}
	return "", "", false
}

func canonicalMealName(s string) string {
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

// looksLikeCalorieLine guards against ingredient bullets that merely
// mention an amount, e.g. "- 200g chicken". Only explicit calorie totals
// are treated as figures.
func looksLikeCalorieLine(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "calorie") || strings.Contains(lower, "kcal") || strings.Contains(lower, "total")
}

func calorieFigure(s string) (int, bool) {
	m := calorieRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// cleanItem strips markdown emphasis and trailing punctuation noise.
func cleanItem(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_")
	return strings.TrimSpace(s)
}

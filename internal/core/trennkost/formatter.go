package trennkost

import (
	"fmt"
	"sort"
	"strings"
)

// 群組的顯示名稱，用在修正建議與早餐提示
var groupDisplay = map[string]string{
	string(GroupStarchCarb):    "carbohydrates",
	string(GroupAnimalProtein): "protein",
	string(GroupDairy):         "dairy",
	string(GroupLegume):        "legumes",
	string(GroupFreshFruit):    "fresh fruit",
	string(GroupFat):           "fats",
	string(GroupDriedFruit):    "dried fruit",
}

func displayGroup(g string) string {
	if d, ok := groupDisplay[g]; ok {
		return d
	}
	return g
}

// cleanLabels 把 "raw → canonical" 標籤縮回原始名稱後串接
func cleanLabels(items []string) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, strings.SplitN(item, " → ", 2)[0])
	}
	return strings.Join(names, ", ")
}

// GenerateFixDirections 為 NOT_OK 的結果產生確定性的修正方向：
// 每個衝突群組一條建議，保留該群組、其餘以低澱粉蔬菜或沙拉替換。
// 衝突的非中性群組不足兩個時回傳空清單。
func GenerateFixDirections(result Result) []string {
	if result.Verdict != VerdictNotOK {
		return nil
	}

	conflicting := make(map[string]bool)
	for _, p := range result.Problems {
		for _, g := range p.AffectedGroups {
			conflicting[g] = true
		}
	}
	delete(conflicting, string(GroupNeutral))
	delete(conflicting, string(GroupUnknown))

	if len(conflicting) < 2 {
		return nil
	}

	groups := make([]string, 0, len(conflicting))
	for g := range conflicting {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var directions []string
	for _, keep := range groups {
		keepItems := result.GroupsFound[FoodGroup(keep)]
		if len(keepItems) == 0 {
			continue
		}

		var replaceParts, forbidden []string
		for _, g := range groups {
			if g == keep {
				continue
			}
			if items := result.GroupsFound[FoodGroup(g)]; len(items) > 0 {
				replaceParts = append(replaceParts, cleanLabels(items))
			}
			forbidden = append(forbidden, displayGroup(g))
		}

		directions = append(directions, fmt.Sprintf(
			"Keep %s (%s), replace %s with low-starch vegetables or salad. IMPORTANT: no %s in the alternative dish!",
			displayGroup(keep), cleanLabels(keepItems),
			strings.Join(replaceParts, ", "),
			strings.Join(forbidden, ", "),
		))
	}

	return directions
}

// breakfastBlock 早餐專屬的提示區塊：兩段式早餐與上午低脂的原則
func breakfastBlock(result Result) []string {
	lines := []string{
		"BREAKFAST NOTE (course module 1.2):",
		"The course material recommends a two-stage breakfast:",
		"  1st breakfast: fresh fruit OR a green smoothie (fat-free)",
		"     fruit digests in 20-30 min, bananas and dried fruit in 45-60 min",
		"  2nd breakfast (if the 1st is not enough): fat-free carbohydrates (max 1-2 tsp fat)",
		"     suggestions: overnight oats, porridge, rice pudding, millet porridge,",
		"     gluten-free bread with cucumber/tomato + max 1-2 tsp avocado",
		"",
		"WHY LOW-FAT BEFORE NOON?",
		"  Until noon the body's detoxification runs at full speed.",
		"  Light food saves digestive energy and leaves more for detoxification.",
		"  Fat-rich foods burden digestion and slow this process down.",
	}

	fatRich := []FoodGroup{GroupFat, GroupDairy, GroupAnimalProtein}
	sort.Slice(fatRich, func(i, j int) bool { return fatRich[i] < fatRich[j] })

	var fatItems []string
	for _, g := range fatRich {
		for _, item := range result.GroupsFound[g] {
			name := strings.SplitN(item, " → ", 2)[0]
			fatItems = append(fatItems, fmt.Sprintf("%s (%s)", name, displayGroup(string(g))))
		}
	}

	if len(fatItems) > 0 {
		lines = append(lines,
			"",
			"FAT-RICH ITEMS IN THIS MEAL: "+strings.Join(fatItems, ", "),
			"Suggest low-fat breakfast alternatives FIRST (fruit, oats, vegetable sticks).",
			"If the user insists: the chosen component plus vegetables is allowed, but mention the guideline.",
		)
	}

	return lines
}

// FormatForExplanationLayer 把評估結果排版成下游說明層的結構化
// 文字區塊。判定結果已由規則決定，說明層只負責解釋，不得更動；
// 沒有待澄清問題時明確標示，避免說明層自己編問題。
func FormatForExplanationLayer(results []Result, breakfastContext bool) string {
	var parts []string
	parts = append(parts,
		"=== FOOD-COMBINATION ANALYSIS (DETERMINISTIC) ===",
		"IMPORTANT: The verdict was determined by rules and MUST NOT be changed.",
		"Your task: explain the result using the course snippets.",
	)

	for _, r := range results {
		if len(r.RequiredQuestions) == 0 {
			parts = append(parts, "CRITICAL: All ingredients are explicit and confirmed. Ask NO follow-up questions about ingredients!")
			break
		}
	}
	parts = append(parts, "")

	for _, r := range results {
		parts = append(parts,
			fmt.Sprintf("-- %s --", r.DishName),
			"Verdict: "+verdictDisplay(r.Verdict),
			"Summary: "+r.Summary,
		)

		if len(r.GroupsFound) > 0 {
			groups := make([]string, 0, len(r.GroupsFound))
			for g := range r.GroupsFound {
				if g != GroupUnknown {
					groups = append(groups, string(g))
				}
			}
			sort.Strings(groups)
			if len(groups) > 0 {
				parts = append(parts, "Groups:")
				for _, g := range groups {
					parts = append(parts, fmt.Sprintf("  %s: %s", g, strings.Join(r.GroupsFound[FoodGroup(g)], ", ")))
				}
			}
		}

		if len(r.Problems) > 0 {
			parts = append(parts, "Problems:")
			for _, p := range r.Problems {
				parts = append(parts,
					fmt.Sprintf("  [%s] %s", p.RuleID, p.Description),
					"    Affects: "+strings.Join(p.AffectedItems, ", "),
					"    Explanation: "+p.Explanation,
				)
				if p.SourceRef != "" {
					parts = append(parts, "    Source: "+p.SourceRef)
				}
			}
		}

		if len(r.RequiredQuestions) > 0 {
			parts = append(parts, "Open questions (pass these on to the user):")
			for _, q := range r.RequiredQuestions {
				parts = append(parts, "  > "+q.Question)
				if q.Reason != "" {
					parts = append(parts, "    Reason: "+q.Reason)
				}
			}
		} else {
			parts = append(parts, "NO OPEN QUESTIONS: all ingredients are clear and confirmed.")
		}

		if len(r.OKCombinations) > 0 {
			parts = append(parts, "OK combinations: "+strings.Join(r.OKCombinations, "; "))
		}

		if dirs := GenerateFixDirections(r); len(dirs) > 0 {
			parts = append(parts, "COMPLIANT ALTERNATIVES (ask the user):")
			for i, d := range dirs {
				parts = append(parts, fmt.Sprintf("  Direction %d: %s", i+1, d))
			}
			parts = append(parts, "  Ask the user which component they want to keep.")
		}

		if breakfastContext {
			parts = append(parts, "")
			parts = append(parts, breakfastBlock(r)...)
		}

		parts = append(parts, "")
	}

	parts = append(parts, "=== END FOOD-COMBINATION ANALYSIS ===")
	return strings.Join(parts, "\n")
}

func verdictDisplay(v Verdict) string {
	switch v {
	case VerdictOK:
		return "OK"
	case VerdictNotOK:
		return "NOT OK"
	case VerdictConditional:
		return "CONDITIONAL"
	}
	return "UNKNOWN"
}

// 參考資料檢索用的群組關鍵詞
var groupQueryTerms = map[FoodGroup]string{
	GroupStarchCarb:    "carbohydrates grains starchy vegetables",
	GroupAnimalProtein: "protein meat fish eggs",
	GroupDairy:         "dairy cheese acid metabolism",
	GroupLegume:        "legumes hard to digest",
	GroupFreshFruit:    "fruit alone empty stomach fast digestion",
	GroupFat:           "fats small amounts oils",
	GroupNeutral:       "low-starch vegetables salad neutral combinable",
}

// BuildReferenceQuery 從評估結果組出課程資料檢索的查詢字串。
// 純查表串接，沒有任何生成式呼叫。
func BuildReferenceQuery(results []Result, breakfastContext bool) string {
	queryParts := []string{"food combination rules"}

	if breakfastContext {
		queryParts = append(queryParts, "breakfast optimal fat-free low-fat fruit smoothie detoxification two-stage overnight oats porridge")
	}

	mentioned := make(map[FoodGroup]bool)
	for _, r := range results {
		for g := range r.GroupsFound {
			mentioned[g] = true
		}
		for _, p := range r.Problems {
			for _, g := range p.AffectedGroups {
				mentioned[FoodGroup(g)] = true
			}
		}
	}

	groups := make([]string, 0, len(mentioned))
	for g := range mentioned {
		groups = append(groups, string(g))
	}
	sort.Strings(groups)
	for _, g := range groups {
		if term, ok := groupQueryTerms[FoodGroup(g)]; ok {
			queryParts = append(queryParts, term)
		}
	}

	seen := make(map[string]bool)
	for _, r := range results {
		for _, p := range r.Problems {
			expl := strings.ToLower(p.Explanation)
			if strings.Contains(expl, "environment") || strings.Contains(expl, "digestive juices") {
				if !seen["environment"] {
					queryParts = append(queryParts, "different digestive environments acidic alkaline neutralize")
					seen["environment"] = true
				}
			}
			if strings.Contains(expl, "ferment") || strings.Contains(expl, "putrefy") {
				if !seen["ferment"] {
					queryParts = append(queryParts, "fermentation putrefaction fruit")
					seen["ferment"] = true
				}
			}
		}
	}

	return strings.Join(queryParts, " ")
}

// FormatSequentialNote 先後進食的固定說明。先後吃和同時吃的評估
// 不同，這裡不跑規則引擎，直接回覆時間間隔的原則。
func FormatSequentialNote(seq SequentialEating) string {
	var b strings.Builder
	b.WriteString("SEQUENTIAL EATING DETECTED:\n")
	fmt.Fprintf(&b, "First: %s, later: %s.\n", strings.Join(seq.FirstFoods, ", "), strings.Join(seq.SecondFoods, ", "))
	if seq.HasWait {
		fmt.Fprintf(&b, "Stated gap: %d minutes.\n", seq.WaitMinutes)
	}
	b.WriteString("Eating foods in sequence with a gap is assessed differently from combining them in one meal. ")
	b.WriteString("Fresh fruit clears the stomach in 20-30 minutes, bananas and dried fruit in 45-60 minutes; ")
	b.WriteString("after that gap the next food no longer counts as a combination.")
	return b.String()
}

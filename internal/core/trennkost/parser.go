package trennkost

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// 描述性形容詞，比對食材前先剔除
var adjectiveStoplist = map[string]bool{
	"normal": true, "plain": true, "regular": true,
	"fresh": true, "raw": true, "ripe": true,
	"cooked": true, "boiled": true, "steamed": true,
	"fried": true, "grilled": true, "roasted": true,
	"baked": true, "braised": true, "sauteed": true,
	"vegan": true, "vegetarian": true,
	"gluten-free": true, "lactose-free": true,
	"organic": true, "whole": true, "half": true,
	"small": true, "big": true, "large": true, "little": true,
}

// "食材名: 份量" 的行，例如 "oats: 60g"、"coconut yogurt (vegan): 2-3 tbsp"
var ingredientQuantityLineRE = regexp.MustCompile(
	`^([A-Za-z][A-Za-z\s\-]{1,40}?)(?:\s*\([^)]{1,30}\))?\s*:\s*[\d½¼¾⅓⅔\-–~<>]`)

// 解析食材清單時要跳過的行：做法、提示、段落標題
var skipLineRE = regexp.MustCompile(
	`(?i)[🧪🥄🍳🔪✅❌⚠️🎉💡→]|preparation|instruction|step\s|tips?:|note:|why\b|explained|soak|stir|mix|combine the|prepare|assemble|fold in`)

// 問句開頭
var questionStartRE = regexp.MustCompile(`(?i)^(is|can|may|are|does|would|should|what|how)\s`)

// 編號或換行分隔的多道菜
var dishSplitRE = regexp.MustCompile(`\n|\d+[.)]\s*`)

// HeuristicParser 把自由文字切成一或多道菜的描述。
// 不呼叫模型，純規則：貼上的食譜、自然語言問句、
// 逗號分隔的食材清單都在這裡處理。
type HeuristicParser struct {
	ontology *Ontology
	// 建構時預編譯好的字界比對，之後唯讀
	boundaryRE map[string]*regexp.Regexp
}

var _ DishParser = (*HeuristicParser)(nil)

// NewHeuristicParser 建立解析器並預編譯所有條目名稱的字界比對
func NewHeuristicParser(ontology *Ontology) *HeuristicParser {
	p := &HeuristicParser{
		ontology:   ontology,
		boundaryRE: make(map[string]*regexp.Regexp),
	}
	for _, entry := range ontology.Entries() {
		for _, name := range append([]string{entry.Canonical}, entry.Synonyms...) {
			key := strings.ToLower(name)
			if _, ok := p.boundaryRE[key]; !ok {
				p.boundaryRE[key] = regexp.MustCompile(
					`(?i)(?:^|[\s,;.("'])` + regexp.QuoteMeta(name) + `(?:[\s,;.?!)"']|$)`)
			}
		}
	}
	return p
}

// Parse 解析文字。優先序：
//  1. 結構化食材清單（三行以上 "名稱: 份量"）視為單一菜色
//  2. 問句：抓句中的複合菜色名稱與散落的本體論食材
//  3. 其餘依換行與編號切行，行內再以分隔符切食材
func (p *HeuristicParser) Parse(text string) []DishInput {
	text = strings.TrimSpace(text)

	if dishes := p.tryParseIngredientList(text); dishes != nil {
		return dishes
	}

	isQuestion := strings.Contains(text, "?") || questionStartRE.MatchString(text)
	if isQuestion {
		if dishes := p.extractFoodsFromQuestion(text); dishes != nil {
			return dishes
		}
	}

	var dishes []DishInput
	for _, line := range dishSplitRE.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if p.ontology.GetCompound(line) != nil {
			dishes = append(dishes, DishInput{Name: line})
			continue
		}

		var parts []string
		for _, part := range itemSeparatorRE.Split(line, -1) {
			part = strings.TrimSpace(part)
			if part != "" && !adjectiveStoplist[strings.ToLower(part)] {
				parts = append(parts, part)
			}
		}

		switch {
		case len(parts) >= 2:
			// 行首是複合菜色名稱時，其餘部分是使用者給的明確食材
			if p.ontology.GetCompound(parts[0]) != nil {
				dishes = append(dishes, DishInput{Name: parts[0], Items: parts[1:]})
			} else {
				dishes = append(dishes, DishInput{Name: inferDishName(parts), Items: parts})
			}
		case len(parts) == 1:
			dishes = append(dishes, DishInput{Name: parts[0]})
		}
	}

	if len(dishes) == 0 {
		dishes = append(dishes, DishInput{Name: text})
	}
	return dishes
}

// tryParseIngredientList 偵測貼上的食譜：三行以上符合 "名稱: 份量"
// 就把所有食材行聚成單一菜色做整體評估。不符合回傳 nil。
func (p *HeuristicParser) tryParseIngredientList(text string) []DishInput {
	var rawLines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			rawLines = append(rawLines, l)
		}
	}
	if len(rawLines) < 3 {
		return nil
	}

	var ingredients []string
	questionIntro := ""

	for _, line := range rawLines {
		if skipLineRE.MatchString(line) {
			continue
		}

		if m := ingredientQuantityLineRE.FindStringSubmatch(line); m != nil {
			name := strings.TrimRight(strings.TrimSpace(m[1]), "-– ")
			if len(name) >= 2 {
				ingredients = append(ingredients, name)
			}
			continue
		}

		// 第一個問句行留下來當菜名
		if questionIntro == "" && strings.Contains(line, "?") && len(line) < 80 {
			questionIntro = line
		}
	}

	if len(ingredients) < 3 {
		return nil
	}

	dishName := "recipe combination"
	if questionIntro != "" {
		name := questionIntro
		if idx := strings.Index(name, "?"); idx >= 0 {
			name = name[:idx]
		}
		name = regexp.MustCompile(`(?i)^(is|the following|my|this|a|an)\s+`).ReplaceAllString(strings.TrimSpace(name), "")
		if name = strings.TrimSpace(name); name != "" {
			dishName = name
		}
	}

	return []DishInput{{Name: dishName, Items: ingredients}}
}

// extractFoodsFromQuestion 從自然語言問句抓食材。先找最長的
// 複合菜色名稱（找到後從文字移除，食材不重複比對），再對
// 剩餘文字做本體論條目的字界比對。都沒有回傳 nil。
func (p *HeuristicParser) extractFoodsFromQuestion(text string) []DishInput {
	textLower := strings.ToLower(text)
	searchText := textLower

	foundCompound := ""
	compounds := p.ontology.Compounds()
	sorted := make([]string, 0, len(compounds))
	for _, c := range compounds {
		sorted = append(sorted, c.Name)
	}
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, name := range sorted {
		nameLower := strings.ToLower(name)
		if strings.Contains(textLower, nameLower) {
			foundCompound = name
			searchText = strings.ReplaceAll(textLower, nameLower, " ")
			break
		}
	}

	var foundItems []string
	seen := make(map[string]bool)
	for _, entry := range p.ontology.Entries() {
		names := append([]string{entry.Canonical}, entry.Synonyms...)
		for _, name := range names {
			if len(name) < 2 || seen[entry.Canonical] {
				continue
			}
			if p.wordBoundaryMatch(searchText, name) {
				foundItems = append(foundItems, entry.Canonical)
				seen[entry.Canonical] = true
				break
			}
		}
	}

	filtered := foundItems[:0]
	for _, item := range foundItems {
		if !adjectiveStoplist[strings.ToLower(item)] {
			filtered = append(filtered, item)
		}
	}
	foundItems = filtered

	switch {
	case foundCompound != "" && len(foundItems) > 0:
		// 複合菜色加明確食材，例如 "burger with tempeh, lettuce"
		return []DishInput{{Name: foundCompound, Items: foundItems}}
	case foundCompound != "":
		return []DishInput{{Name: foundCompound}}
	case len(foundItems) > 1:
		return []DishInput{{Name: inferDishName(foundItems), Items: foundItems}}
	case len(foundItems) == 1:
		return []DishInput{{Name: foundItems[0]}}
	}
	return nil
}

// wordBoundaryMatch 字界比對，避免 "rice" 比中 "price"
func (p *HeuristicParser) wordBoundaryMatch(text, name string) bool {
	re, ok := p.boundaryRE[strings.ToLower(name)]
	return ok && re.MatchString(text)
}

// inferDishName 從食材清單組出菜名
func inferDishName(items []string) string {
	if len(items) <= 3 {
		return strings.Join(items, " + ")
	}
	return fmt.Sprintf("%s + %s + %d more", items[0], items[1], len(items)-2)
}

package trennkost

import (
	"regexp"
	"strconv"
	"strings"
)

// 食物組合問題的關鍵字
var foodQueryRE = regexp.MustCompile(`(?i)combine|combination|together|allowed|can i .*eat|is .* ok|okay to|food.combining|menu|dish|meal|plate`)

// 要求推薦而非分析的句型，命中就直接排除
var recipeRequestREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)do you have .*(dish|recipe)`),
	regexp.MustCompile(`(?i)give me .*(dish|recipe)`),
	regexp.MustCompile(`(?i)can you .*suggest`),
	regexp.MustCompile(`(?i)suggest .*(dish|recipe|meal)`),
	regexp.MustCompile(`(?i)recommend .*(dish|recipe|meal)`),
	regexp.MustCompile(`(?i)idea[s]? for .*(dish|meal|dinner|lunch|breakfast)`),
	regexp.MustCompile(`(?i)recipe for today`),
	regexp.MustCompile(`(?i)what (should|can|could|may) i (cook|eat|have)`),
	regexp.MustCompile(`(?i)what would be a good option`),
	regexp.MustCompile(`(?i)good option for`),
}

// 早餐情境：明確字眼加上 porridge、oats 這類強烈暗示
var breakfastRE = regexp.MustCompile(`(?i)breakfast|in the morning|before noon|morning meal|oatmeal|oats|porridge|muesli|granola|overnight`)

// 食材清單的常見分隔
var itemSeparatorRE = regexp.MustCompile(`(?i)[,;]\s*|\s+and\s+|\s+with\s+|\s+&\s+|\s+plus\s+`)

// 先後進食的句型
var sequentialREs = []*regexp.Regexp{
	// "apple 30 minutes before lunch" / "apple before rice"
	regexp.MustCompile(`(?i)(\w+(?:\s+\w+)?)\s+(?:(\d+)\s*min(?:ute)?s?\s+)?before\s+(?:the\s+|my\s+)?(\w+)`),
	// "first apple, then rice"
	regexp.MustCompile(`(?i)first\s+(\w+(?:\s+\w+)?),?\s+(?:then|afterwards|after that)\s+(\w+)`),
	// "apple and after 30 minutes rice"
	regexp.MustCompile(`(?i)(\w+(?:\s+\w+)?)\s+and\s+after\s+(\d+)\s*min(?:ute)?s?\s+(\w+)`),
	// "after the apple then rice"
	regexp.MustCompile(`(?i)after\s+(?:the\s+|my\s+)?(\w+(?:\s+\w+)?)\s+then\s+(\w+)`),
}

// Detector 判斷輸入文字是否是組合分析問題，以及是否帶有
// 早餐或先後進食的特殊語境
type Detector struct {
	ontology *Ontology
}

// NewDetector 建立偵測器
func NewDetector(ontology *Ontology) *Detector {
	return &Detector{ontology: ontology}
}

// IsFoodCombinationQuery 判斷文字是否是食物組合分析問題。
// 推薦類句型優先排除；之後關鍵字、已知複合菜色名稱、
// 或出現兩種以上可解析食材任一命中即為 true。
func (d *Detector) IsFoodCombinationQuery(text string) bool {
	for _, re := range recipeRequestREs {
		if re.MatchString(text) {
			return false
		}
	}

	if foodQueryRE.MatchString(text) {
		return true
	}

	textLower := strings.ToLower(text)
	for _, comp := range d.ontology.Compounds() {
		if strings.Contains(textLower, strings.ToLower(comp.Name)) {
			return true
		}
	}

	// 以分隔符切段後計算可解析的食材數；整段查不到時退而
	// 逐字查，處理 "is egg okay?" 這種食材混在句子裡的情況
	found := make(map[string]bool)
	for _, segment := range itemSeparatorRE.Split(strings.TrimSpace(text), -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if d.ontology.Lookup(segment) != nil {
			found[strings.ToLower(segment)] = true
			continue
		}
		for _, word := range strings.Fields(segment) {
			word = strings.Trim(word, "?!.,;:()\"'")
			if len(word) >= 3 && d.ontology.Lookup(word) != nil {
				found[strings.ToLower(word)] = true
				break
			}
		}
	}
	return len(found) >= 2
}

// DetectBreakfastContext 判斷文字是否談的是早餐或上午進食
func (d *Detector) DetectBreakfastContext(text string) bool {
	return breakfastRE.MatchString(text)
}

// DetectSequentialEating 偵測先後進食的問法（"apple then rice"、
// "apple 30 minutes before lunch"）。先後進食和同時組合的評估
// 方式不同，呼叫端命中後應走專門的說明路徑而不是規則引擎。
// 沒命中回傳 nil。
func (d *Detector) DetectSequentialEating(text string) *SequentialEating {
	for _, re := range sequentialREs {
		m := re.FindStringSubmatch(strings.ToLower(text))
		if m == nil {
			continue
		}

		groups := m[1:]
		if len(groups) == 3 && groups[1] != "" {
			if minutes, err := strconv.Atoi(groups[1]); err == nil {
				return &SequentialEating{
					FirstFoods:  []string{strings.TrimSpace(groups[0])},
					SecondFoods: []string{strings.TrimSpace(groups[2])},
					WaitMinutes: minutes,
					HasWait:     true,
				}
			}
		}

		// 沒有時間的句型：最後一個捕獲組是後吃的食物
		first := strings.TrimSpace(groups[0])
		second := strings.TrimSpace(groups[len(groups)-1])
		if first != "" && second != "" {
			return &SequentialEating{
				FirstFoods:  []string{first},
				SecondFoods: []string{second},
			}
		}
	}
	return nil
}

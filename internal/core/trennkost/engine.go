package trennkost

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

//go:embed data/rules.yaml
var defaultRulesYAML []byte

// smoothieSafeSubgroups 不干擾水果消化的中性子群組（綠拿鐵例外）
var smoothieSafeSubgroups = map[FoodSubgroup]bool{
	SubLeafyGreen: true,
	SubHerb:       true,
}

// Engine 確定性的食物組合規則引擎。
// 輸入 DishAnalysis，依優先序套用規則表，完全不呼叫模型。
type Engine struct {
	ontology     *Ontology
	rules        map[string]*RuleDefinition
	rulePriority []string
}

type ruleConditionYAML struct {
	Pair            []string `yaml:"pair"`
	GroupPresent    string   `yaml:"group_present"`
	HasUnknown      *bool    `yaml:"has_unknown"`
	HasAssumed      *bool    `yaml:"has_assumed"`
	ExceptSubgroups []string `yaml:"except_subgroups"`
}

type ruleYAML struct {
	RuleID        string            `yaml:"rule_id"`
	Description   string            `yaml:"description"`
	Condition     ruleConditionYAML `yaml:"condition"`
	Verdict       string            `yaml:"verdict"`
	Severity      string            `yaml:"severity"`
	SourceRef     string            `yaml:"source_ref"`
	Explanation   string            `yaml:"explanation"`
	ExceptionNote string            `yaml:"exception_note"`
}

type ruleFile struct {
	Rules        []ruleYAML `yaml:"rules"`
	RulePriority []string   `yaml:"rule_priority"`
}

// NewEngine 載入規則表並回傳引擎。路徑留空時使用內嵌預設規則。
// 規則表有任何不一致（未知群組、缺優先序、重複 ID）都在此失敗。
func NewEngine(ontology *Ontology, rulesPath string) (*Engine, error) {
	data := defaultRulesYAML
	if rulesPath != "" {
		b, err := os.ReadFile(rulesPath)
		if err != nil {
			return nil, common.NewError(common.ErrCodeRuleTableLoad, "failed to read rule table", err)
		}
		data = b
	}

	var file ruleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, common.NewError(common.ErrCodeRuleTableLoad, "invalid rule table", err)
	}

	eng := &Engine{
		ontology: ontology,
		rules:    make(map[string]*RuleDefinition, len(file.Rules)),
	}

	for i := range file.Rules {
		rule, err := parseRule(&file.Rules[i])
		if err != nil {
			return nil, common.NewError(common.ErrCodeRuleTableLoad, "invalid rule table", err)
		}
		if _, exists := eng.rules[rule.RuleID]; exists {
			return nil, common.NewError(common.ErrCodeRuleTableLoad, "invalid rule table",
				common.NewValidationError("duplicate rule id %s", rule.RuleID))
		}
		eng.rules[rule.RuleID] = rule
	}

	eng.rulePriority = file.RulePriority
	if len(eng.rulePriority) == 0 {
		for i := range file.Rules {
			eng.rulePriority = append(eng.rulePriority, file.Rules[i].RuleID)
		}
	}
	for _, id := range eng.rulePriority {
		if _, ok := eng.rules[id]; !ok {
			return nil, common.NewError(common.ErrCodeRuleTableLoad, "invalid rule table",
				common.NewValidationError("rule_priority references unknown rule %s", id))
		}
	}

	common.LogInfo("規則表載入完成", zap.Int("規則數", len(eng.rules)))
	return eng, nil
}

func parseRule(r *ruleYAML) (*RuleDefinition, error) {
	if r.RuleID == "" {
		return nil, common.NewValidationError("rule without rule_id")
	}

	verdict, err := ParseVerdict(r.Verdict)
	if err != nil {
		return nil, common.NewValidationError("rule %s: %v", r.RuleID, err)
	}
	severity, err := ParseSeverity(r.Severity)
	if err != nil {
		return nil, common.NewValidationError("rule %s: %v", r.RuleID, err)
	}

	cond := RuleCondition{
		HasUnknown: r.Condition.HasUnknown,
		HasAssumed: r.Condition.HasAssumed,
	}

	kinds := 0
	if len(r.Condition.Pair) > 0 {
		if len(r.Condition.Pair) != 2 {
			return nil, common.NewValidationError("rule %s: pair needs exactly two groups", r.RuleID)
		}
		for _, g := range r.Condition.Pair {
			group, err := ParseFoodGroup(g)
			if err != nil {
				return nil, common.NewValidationError("rule %s: %v", r.RuleID, err)
			}
			cond.Pair = append(cond.Pair, group)
		}
		kinds++
	}
	if r.Condition.GroupPresent != "" {
		group, err := ParseFoodGroup(r.Condition.GroupPresent)
		if err != nil {
			return nil, common.NewValidationError("rule %s: %v", r.RuleID, err)
		}
		cond.GroupPresent = group
		kinds++
	}
	if r.Condition.HasUnknown != nil {
		kinds++
	}
	if r.Condition.HasAssumed != nil {
		kinds++
	}
	if kinds != 1 {
		return nil, common.NewValidationError("rule %s: condition needs exactly one of pair, group_present, has_unknown, has_assumed", r.RuleID)
	}
	if len(r.Condition.ExceptSubgroups) > 0 && len(cond.Pair) == 0 {
		return nil, common.NewValidationError("rule %s: except_subgroups requires a pair condition", r.RuleID)
	}
	for _, s := range r.Condition.ExceptSubgroups {
		sub, err := ParseFoodSubgroup(s)
		if err != nil {
			return nil, common.NewValidationError("rule %s: %v", r.RuleID, err)
		}
		cond.ExceptSubgroups = append(cond.ExceptSubgroups, sub)
	}

	return &RuleDefinition{
		RuleID:        r.RuleID,
		Description:   r.Description,
		Condition:     cond,
		Verdict:       verdict,
		Severity:      severity,
		SourceRef:     r.SourceRef,
		Explanation:   strings.TrimSpace(r.Explanation),
		ExceptionNote: r.ExceptionNote,
	}, nil
}

// evalState 單次評估期間的中間狀態
type evalState struct {
	groupsFound    map[FoodGroup][]string
	subgroupsFound map[FoodGroup]map[FoodSubgroup]bool
	hasUnknown     bool
	hasAssumed     bool
	triggeredPairs map[string]bool // 已被較高優先序規則認領的群組配對
}

func pairKey(g1, g2 FoodGroup) string {
	if g2 < g1 {
		g1, g2 = g2, g1
	}
	return string(g1) + "|" + string(g2)
}

// Evaluate 以優先序套用所有規則並回傳評估結果。
// 每個無序群組配對只由第一條命中的規則裁決，之後的規則跳過該配對。
func (e *Engine) Evaluate(analysis DishAnalysis) Result {
	allItems := analysis.AllItems()

	st := &evalState{
		groupsFound:    make(map[FoodGroup][]string),
		subgroupsFound: make(map[FoodGroup]map[FoodSubgroup]bool),
		hasUnknown:     len(analysis.UnknownItems) > 0,
		hasAssumed:     len(analysis.AssumedItems) > 0,
		triggeredPairs: make(map[string]bool),
	}

	for _, item := range allItems {
		st.groupsFound[item.Group] = append(st.groupsFound[item.Group], item.Label())
		if item.Subgroup != "" {
			if st.subgroupsFound[item.Group] == nil {
				st.subgroupsFound[item.Group] = make(map[FoodSubgroup]bool)
			}
			st.subgroupsFound[item.Group][item.Subgroup] = true
		}
	}

	var problems []RuleProblem
	var okNotes []string

	for _, ruleID := range e.rulePriority {
		rule := e.rules[ruleID]
		fired, pair, group := e.checkRule(rule, st)
		if !fired {
			continue
		}

		switch rule.Verdict {
		case VerdictOK:
			okNotes = append(okNotes, rule.Description)
			if len(pair) == 2 {
				st.triggeredPairs[pairKey(pair[0], pair[1])] = true
			}
		case VerdictNotOK, VerdictConditional:
			var affectedItems, affectedGroups []string
			if len(pair) == 2 {
				for _, g := range pair {
					affectedGroups = append(affectedGroups, string(g))
					for _, label := range st.groupsFound[g] {
						affectedItems = append(affectedItems, fmt.Sprintf("%s (%s)", label, g))
					}
				}
				st.triggeredPairs[pairKey(pair[0], pair[1])] = true
			} else if group != "" {
				affectedGroups = append(affectedGroups, string(group))
				for _, label := range st.groupsFound[group] {
					affectedItems = append(affectedItems, fmt.Sprintf("%s (%s)", label, group))
				}
			}

			problems = append(problems, RuleProblem{
				RuleID:         rule.RuleID,
				Description:    rule.Description,
				Severity:       rule.Severity,
				AffectedItems:  affectedItems,
				AffectedGroups: affectedGroups,
				SourceRef:      rule.SourceRef,
				Explanation:    rule.Explanation,
			})
		}
	}

	if p := e.checkRefinedSugar(allItems); p != nil {
		problems = append(problems, *p)
	}
	if p := e.checkMixedProteinSources(allItems, st); p != nil {
		problems = append(problems, *p)
	}

	questions := e.buildQuestions(analysis, st)
	verdict := determineVerdict(problems, questions, st.hasUnknown)
	summary := buildSummary(analysis.DishName, verdict, problems, questions)

	return Result{
		DishName:          analysis.DishName,
		Verdict:           verdict,
		Summary:           summary,
		Problems:          problems,
		RequiredQuestions: questions,
		OKCombinations:    okNotes,
		GroupsFound:       st.groupsFound,
	}
}

// checkRule 判斷單一規則是否命中，回傳命中的配對或群組
func (e *Engine) checkRule(rule *RuleDefinition, st *evalState) (bool, []FoodGroup, FoodGroup) {
	cond := rule.Condition

	if len(cond.Pair) == 2 {
		g1, g2 := cond.Pair[0], cond.Pair[1]

		// 同群組配對（例如澱粉加澱粉）代表該群組有兩項以上
		if g1 == g2 {
			if len(st.groupsFound[g1]) >= 2 && !st.triggeredPairs[pairKey(g1, g2)] {
				return true, cond.Pair, ""
			}
			return false, nil, ""
		}

		if len(st.groupsFound[g1]) == 0 || len(st.groupsFound[g2]) == 0 {
			return false, nil, ""
		}
		if st.triggeredPairs[pairKey(g1, g2)] {
			return false, nil, ""
		}

		// 帶例外子群組的規則：只有當配對的中性食材全數落在
		// 例外子群組內才命中（綠拿鐵規則）。沒命中時讓後面
		// 同配對的一般規則接手。
		if len(cond.ExceptSubgroups) > 0 {
			allowed := make(map[FoodSubgroup]bool, len(cond.ExceptSubgroups))
			for _, s := range cond.ExceptSubgroups {
				allowed[s] = true
			}
			target := g2
			if g1 == GroupNeutral {
				target = g1
			}
			subs := st.subgroupsFound[target]
			if len(subs) == 0 {
				return false, nil, ""
			}
			for s := range subs {
				if !allowed[s] {
					return false, nil, ""
				}
			}
			return true, cond.Pair, ""
		}

		return true, cond.Pair, ""
	}

	if cond.GroupPresent != "" {
		if len(st.groupsFound[cond.GroupPresent]) > 0 {
			return true, nil, cond.GroupPresent
		}
		return false, nil, ""
	}

	if cond.HasUnknown != nil {
		return *cond.HasUnknown == st.hasUnknown, nil, ""
	}
	if cond.HasAssumed != nil {
		return *cond.HasAssumed == st.hasAssumed, nil, ""
	}

	return false, nil, ""
}

// checkRefinedSugar 健康建議 H001：精製白糖雖然組合上合規，
// 課程教材仍建議避免。INFO 等級，不影響判定結果。
func (e *Engine) checkRefinedSugar(allItems []FoodItem) *RuleProblem {
	var labels []string
	for _, item := range allItems {
		if strings.EqualFold(item.Canonical, "refined sugar") {
			labels = append(labels, item.RawName+" → refined sugar")
		}
	}
	if len(labels) == 0 {
		return nil
	}
	return &RuleProblem{
		RuleID:         "H001",
		Description:    "Refined white sugar should be avoided",
		Severity:       SeverityInfo,
		AffectedItems:  labels,
		AffectedGroups: []string{string(GroupStarchCarb)},
		SourceRef:      "modul-1.1,modul-1.2",
		Explanation: "Refined sugar is technically a compatible carbohydrate, but the " +
			"course material describes it as harmful. Better alternatives are honey, " +
			"maple syrup or coconut blossom sugar.",
	}
}

// checkMixedProteinSources R018：肉、魚、蛋屬於不同的蛋白質來源，
// 同一餐出現兩種以上就是硬性違規
func (e *Engine) checkMixedProteinSources(allItems []FoodItem, st *evalState) *RuleProblem {
	if len(st.subgroupsFound[GroupAnimalProtein]) < 2 {
		return nil
	}

	bySubgroup := make(map[FoodSubgroup][]string)
	for _, item := range allItems {
		if item.Group == GroupAnimalProtein && item.Subgroup != "" {
			bySubgroup[item.Subgroup] = append(bySubgroup[item.Subgroup], item.Label())
		}
	}

	subgroups := make([]string, 0, len(bySubgroup))
	for s := range bySubgroup {
		subgroups = append(subgroups, string(s))
	}
	sort.Strings(subgroups)

	var affectedItems []string
	for _, s := range subgroups {
		for _, label := range bySubgroup[FoodSubgroup(s)] {
			affectedItems = append(affectedItems, fmt.Sprintf("%s (%s)", label, s))
		}
	}

	return &RuleProblem{
		RuleID:         "R018",
		Description:    "Do not combine different protein sources",
		Severity:       SeverityCritical,
		AffectedItems:  affectedItems,
		AffectedGroups: []string{string(GroupAnimalProtein)},
		SourceRef:      "modul-1.1/page-004,modul-1.1/page-001",
		Explanation: "Only ONE kind of concentrated food should be chosen per meal. " +
			"Fish, meat and eggs are distinct protein sources and should not be " +
			"combined; the digestive system cannot handle more than one concentrated " +
			"food at a time.",
	}
}

// buildQuestions 建立澄清問題：未知食材、推測食材、多義食材、
// 油脂份量，最後是複合菜色的名稱層級澄清
func (e *Engine) buildQuestions(analysis DishAnalysis, st *evalState) []RequiredQuestion {
	var questions []RequiredQuestion

	if st.hasUnknown {
		questions = append(questions, RequiredQuestion{
			Question: fmt.Sprintf("I could not classify the following ingredients: %s. Can you describe them in more detail?",
				strings.Join(analysis.UnknownItems, ", ")),
			Reason:       "Unclassified ingredients prevent a complete assessment.",
			AffectsItems: analysis.UnknownItems,
		})
	}

	if st.hasAssumed {
		names := make([]string, 0, len(analysis.AssumedItems))
		for _, item := range analysis.AssumedItems {
			names = append(names, item.RawName)
		}
		questions = append(questions, RequiredQuestion{
			Question:     fmt.Sprintf("I am assuming these additional ingredients: %s. Is that correct?", strings.Join(names, ", ")),
			Reason:       "Assumed ingredients must be confirmed for a reliable assessment.",
			AffectsItems: names,
		})
	}

	for _, amb := range e.ontology.AmbiguousEntries(analysis.AllItems()) {
		questions = append(questions, RequiredQuestion{
			Question:     fmt.Sprintf("'%s' is ambiguous: %s", amb.Item.RawName, amb.Note),
			Reason:       "Ambiguous ingredient needs clarification for a correct classification.",
			AffectsItems: []string{amb.Item.RawName},
		})
	}

	// 油脂只在與其他濃縮群組共存時才需要問份量；
	// 油脂加蔬菜或沙拉本來就沒問題
	if fatItems := st.groupsFound[GroupFat]; len(fatItems) > 0 && len(st.groupsFound) > 1 {
		hasOtherConcentrated := false
		for g := range st.groupsFound {
			if g != GroupFat && g != GroupNeutral && g != GroupUnknown {
				hasOtherConcentrated = true
				break
			}
		}
		if hasOtherConcentrated {
			questions = append(questions, RequiredQuestion{
				Question: fmt.Sprintf("How much fat (%s) is in the dish? Small amounts (1-2 tsp) go with everything, larger amounts only with vegetables or salad.",
					strings.Join(fatItems, ", ")),
				Reason:       "The amount of fat affects the assessment.",
				AffectsItems: fatItems,
			})
		}
	}

	// 使用者已列出明確食材時視為已回答過名稱層級的澄清
	if compound := e.ontology.GetCompound(analysis.DishName); compound != nil &&
		compound.Clarification != "" && !analysis.HasExplicitItems {
		questions = append(questions, RequiredQuestion{
			Question:     compound.Clarification,
			Reason:       "Details about the dish are needed for a complete assessment.",
			AffectsItems: []string{analysis.DishName},
		})
	}

	return questions
}

// determineVerdict 判定優先序：NOT_OK > CONDITIONAL > OK
func determineVerdict(problems []RuleProblem, questions []RequiredQuestion, hasUnknown bool) Verdict {
	for _, p := range problems {
		if p.Severity == SeverityCritical && strings.HasPrefix(p.RuleID, "R") {
			return VerdictNotOK
		}
	}

	if len(questions) > 0 || hasUnknown {
		return VerdictConditional
	}

	for _, p := range problems {
		if p.Severity == SeverityWarning {
			return VerdictConditional
		}
	}

	return VerdictOK
}

func buildSummary(dishName string, verdict Verdict, problems []RuleProblem, questions []RequiredQuestion) string {
	switch verdict {
	case VerdictOK:
		return fmt.Sprintf("%s: combination is fine under food-combining rules.", dishName)

	case VerdictNotOK:
		groupSet := make(map[string]bool)
		for _, p := range problems {
			if p.Severity != SeverityCritical {
				continue
			}
			for _, g := range p.AffectedGroups {
				groupSet[g] = true
			}
		}
		if len(groupSet) > 0 {
			groups := make([]string, 0, len(groupSet))
			for g := range groupSet {
				groups = append(groups, g)
			}
			sort.Strings(groups)
			return fmt.Sprintf("%s: NOT OK, %s should not be combined.", dishName, strings.Join(groups, " + "))
		}
		return fmt.Sprintf("%s: NOT OK under food-combining rules.", dishName)

	case VerdictConditional:
		if len(questions) > 0 {
			return fmt.Sprintf("%s: conditionally OK, %d open question(s) remain.", dishName, len(questions))
		}
		return fmt.Sprintf("%s: conditionally OK, depends on amounts and details.", dishName)
	}

	return fmt.Sprintf("%s: cannot be assessed reliably (unknown ingredients).", dishName)
}

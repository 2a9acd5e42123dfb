package trennkost

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

//go:embed data/ontology.csv
var defaultOntologyCSV []byte

//go:embed data/compounds.yaml
var defaultCompoundsYAML []byte

// Ontology 常駐記憶體的食物本體論。啟動時載入一次，之後唯讀，
// 可被所有請求併發共用；唯一的寫入是未知食材的側錄檔。
type Ontology struct {
	entries      []*OntologyEntry
	synonymIndex map[string]*OntologyEntry // 小寫同義詞 → 條目
	synonymKeys  []string                  // 排序後的索引鍵，保證子字串比對的順序穩定
	compounds    []CompoundDish
	compoundIdx  map[string]*CompoundDish // 小寫名稱 → 複合菜色

	unknownLogPath string
	logMu          sync.Mutex
}

// AmbiguousItem 帶有澄清備註的多義食材
type AmbiguousItem struct {
	Item FoodItem
	Note string
}

// LoadOntology 載入本體論與複合菜色表。路徑留空時使用內嵌預設資料。
// 任何格式錯誤都在此失敗，引擎拒絕以不完整的資料啟動。
func LoadOntology(ontologyPath, compoundsPath, unknownLogPath string) (*Ontology, error) {
	csvData := defaultOntologyCSV
	if ontologyPath != "" {
		data, err := os.ReadFile(ontologyPath)
		if err != nil {
			return nil, common.NewError(common.ErrCodeOntologyLoad, "failed to read ontology table", err)
		}
		csvData = data
	}

	compData := defaultCompoundsYAML
	if compoundsPath != "" {
		data, err := os.ReadFile(compoundsPath)
		if err != nil {
			return nil, common.NewError(common.ErrCodeCompoundLoad, "failed to read compound table", err)
		}
		compData = data
	}

	ont := &Ontology{
		synonymIndex:   make(map[string]*OntologyEntry),
		compoundIdx:    make(map[string]*CompoundDish),
		unknownLogPath: unknownLogPath,
	}

	if err := ont.loadEntries(csvData); err != nil {
		return nil, common.NewError(common.ErrCodeOntologyLoad, "invalid ontology table", err)
	}
	if err := ont.loadCompounds(compData); err != nil {
		return nil, common.NewError(common.ErrCodeCompoundLoad, "invalid compound table", err)
	}

	common.LogInfo("本體論載入完成",
		zap.Int("條目數", len(ont.entries)),
		zap.Int("同義詞數", len(ont.synonymIndex)),
		zap.Int("複合菜色數", len(ont.compounds)),
	)

	return ont, nil
}

// loadEntries 解析 CSV 並建立同義詞索引
func (o *Ontology) loadEntries(data []byte) error {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = 7

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("missing header: %w", err)
	}
	if len(header) < 7 || header[0] != "canonical" {
		return fmt.Errorf("unexpected header %v", header)
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		canonical := strings.TrimSpace(record[0])
		if canonical == "" || strings.HasPrefix(canonical, "#") {
			continue
		}

		var synonyms []string
		for _, s := range strings.Split(record[1], ",") {
			if s = strings.TrimSpace(s); s != "" {
				synonyms = append(synonyms, s)
			}
		}

		// 嚴格解析：非法的群組或子群組值讓載入直接失敗
		group, err := ParseFoodGroup(strings.TrimSpace(record[2]))
		if err != nil {
			return common.NewValidationError("line %d (%s): %v", line, canonical, err)
		}
		subgroup, err := ParseFoodSubgroup(strings.TrimSpace(record[3]))
		if err != nil {
			return common.NewValidationError("line %d (%s): %v", line, canonical, err)
		}

		entry := &OntologyEntry{
			Canonical:     canonical,
			Synonyms:      synonyms,
			Group:         group,
			Subgroup:      subgroup,
			AmbiguityFlag: strings.EqualFold(strings.TrimSpace(record[4]), "true"),
			AmbiguityNote: strings.TrimSpace(record[5]),
			Notes:         strings.TrimSpace(record[6]),
		}
		o.entries = append(o.entries, entry)

		o.synonymIndex[strings.ToLower(canonical)] = entry
		for _, syn := range synonyms {
			o.synonymIndex[strings.ToLower(syn)] = entry
		}
	}

	if len(o.entries) == 0 {
		return fmt.Errorf("ontology table is empty")
	}

	// 子字串比對走這份排序後的鍵清單，輸出才與 map 的亂序無關
	o.synonymKeys = make([]string, 0, len(o.synonymIndex))
	for key := range o.synonymIndex {
		o.synonymKeys = append(o.synonymKeys, key)
	}
	sort.Strings(o.synonymKeys)

	return nil
}

type compoundFile struct {
	Compounds []CompoundDish `yaml:"compounds"`
}

// loadCompounds 解析複合菜色表，食材名稱必須能在本體論中解析
func (o *Ontology) loadCompounds(data []byte) error {
	var file compoundFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return err
	}

	for i := range file.Compounds {
		comp := &file.Compounds[i]
		if comp.Name == "" {
			return common.NewValidationError("compound #%d has no name", i+1)
		}
		for _, item := range append(append([]string{}, comp.BaseItems...), comp.OptionalItems...) {
			if o.Lookup(item) == nil {
				return common.NewValidationError("compound %q references unknown item %q", comp.Name, item)
			}
		}
		o.compounds = append(o.compounds, *comp)
		o.compoundIdx[strings.ToLower(comp.Name)] = comp
	}

	return nil
}

// Lookup 以名稱查找食材（大小寫不敏感、同義詞感知）。
// 解析順序：精確比對 → 最長同義詞子字串（≥3 字元，處理 "grilled chicken"
// 這類修飾語）→ 原始名稱為同義詞的子字串（處理 "salmon" 對 "smoked salmon"）。
// 找不到回傳 nil。
func (o *Ontology) Lookup(rawName string) *OntologyEntry {
	key := strings.ToLower(strings.TrimSpace(rawName))
	if key == "" {
		return nil
	}

	// 1. 精確比對
	if entry, ok := o.synonymIndex[key]; ok {
		return entry
	}

	// 2. 最長同義詞子字串
	var best *OntologyEntry
	bestLen := 0
	for _, syn := range o.synonymKeys {
		if len(syn) > bestLen && strings.Contains(key, syn) {
			best = o.synonymIndex[syn]
			bestLen = len(syn)
		}
	}
	if best != nil && bestLen >= 3 {
		return best
	}

	// 3. 原始名稱是某個較長同義詞的子字串
	if len(key) >= 3 {
		for _, syn := range o.synonymKeys {
			if strings.Contains(syn, key) {
				return o.synonymIndex[syn]
			}
		}
	}

	return nil
}

// LookupToFoodItem 查找並回傳 FoodItem，永不失敗：
// 未解析的名稱回傳 UNKNOWN 群組、信心 0，並寫入側錄檔供日後擴充詞彙。
func (o *Ontology) LookupToFoodItem(rawName string, status ItemStatus, assumptionReason string) FoodItem {
	entry := o.Lookup(rawName)
	if entry == nil {
		o.logUnknown(rawName)
		return FoodItem{
			RawName:          rawName,
			Group:            GroupUnknown,
			Confidence:       0,
			Status:           status,
			AssumptionReason: assumptionReason,
		}
	}

	confidence := 1.0
	if entry.AmbiguityFlag {
		confidence = 0.7
	}
	return FoodItem{
		RawName:          rawName,
		Canonical:        entry.Canonical,
		Group:            entry.Group,
		Subgroup:         entry.Subgroup,
		Confidence:       confidence,
		Status:           status,
		AssumptionReason: assumptionReason,
	}
}

// GetCompound 查找複合菜色，先精確再大小寫不敏感；找不到回傳 nil
func (o *Ontology) GetCompound(dishName string) *CompoundDish {
	key := strings.TrimSpace(dishName)
	for i := range o.compounds {
		if o.compounds[i].Name == key {
			return &o.compounds[i]
		}
	}
	if comp, ok := o.compoundIdx[strings.ToLower(key)]; ok {
		return comp
	}
	return nil
}

// Compounds 回傳所有複合菜色（唯讀）
func (o *Ontology) Compounds() []CompoundDish {
	return o.compounds
}

// Entries 回傳所有條目（唯讀）
func (o *Ontology) Entries() []*OntologyEntry {
	return o.entries
}

// AmbiguousEntries 回傳實際出現且帶有多義旗標的食材及其備註
func (o *Ontology) AmbiguousEntries(items []FoodItem) []AmbiguousItem {
	var result []AmbiguousItem
	for _, item := range items {
		entry := o.Lookup(item.RawName)
		if entry != nil && entry.AmbiguityFlag && entry.AmbiguityNote != "" {
			result = append(result, AmbiguousItem{Item: item, Note: entry.AmbiguityNote})
		}
	}
	return result
}

// logUnknown 把未解析的名稱追加到側錄檔。寫入失敗只記 warning，不影響流程。
func (o *Ontology) logUnknown(rawName string) {
	if o.unknownLogPath == "" {
		return
	}

	o.logMu.Lock()
	defer o.logMu.Unlock()

	if err := os.MkdirAll(filepath.Dir(o.unknownLogPath), 0755); err != nil {
		common.LogWarn("無法建立未知食材側錄目錄", zap.Error(err))
		return
	}
	f, err := os.OpenFile(o.unknownLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		common.LogWarn("無法寫入未知食材側錄", zap.String("名稱", rawName), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.WriteString(rawName + "\n"); err != nil {
		common.LogWarn("無法寫入未知食材側錄", zap.String("名稱", rawName), zap.Error(err))
	}
}

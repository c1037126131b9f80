package models

// PlanInfo - серверная таблица тарифов. Цена и количество отчетов
// никогда не принимаются от клиента.
type PlanInfo struct {
	Plan          Plan
	Title         string
	PriceRUB      float64
	AnalysesCount int
}

var planTable = map[Plan]PlanInfo{
	PlanTrial:   {Plan: PlanTrial, Title: "Пробный", PriceRUB: 0, AnalysesCount: 3},
	PlanStart:   {Plan: PlanStart, Title: "Старт", PriceRUB: 4900, AnalysesCount: 20},
	PlanOptimal: {Plan: PlanOptimal, Title: "Оптимальный", PriceRUB: 9900, AnalysesCount: 50},
	PlanProfi:   {Plan: PlanProfi, Title: "Профи", PriceRUB: 17900, AnalysesCount: 100},
}

// GetPlanInfo возвращает тариф по имени. Второй результат false для
// неизвестного плана.
func GetPlanInfo(p Plan) (PlanInfo, bool) {
	info, ok := planTable[p]
	return info, ok
}

// PurchasablePlans - планы, доступные к покупке (без trial)
func PurchasablePlans() []PlanInfo {
	return []PlanInfo{planTable[PlanStart], planTable[PlanOptimal], planTable[PlanProfi]}
}

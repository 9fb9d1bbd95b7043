package formulas

// Column names of the published formula table
const (
	ColUsingOwnEggs = "param_using_own_eggs"
	ColPreviousIVF  = "param_attempted_ivf_previously"
	ColReasonKnown  = "param_is_reason_for_infertility_known"

	ColFormula = "cdc_formula"

	ColIntercept = "formula_intercept"

	ColAgeLinear      = "formula_age_linear_coefficient"
	ColAgePowerCoeff  = "formula_age_power_coefficient"
	ColAgePowerFactor = "formula_age_power_factor"

	ColBMILinear      = "formula_bmi_linear_coefficient"
	ColBMIPowerCoeff  = "formula_bmi_power_coefficient"
	ColBMIPowerFactor = "formula_bmi_power_factor"

	ColTubalFactorTrue               = "formula_tubal_factor_true_value"
	ColTubalFactorFalse              = "formula_tubal_factor_false_value"
	ColMaleFactorInfertilityTrue     = "formula_male_factor_infertility_true_value"
	ColMaleFactorInfertilityFalse    = "formula_male_factor_infertility_false_value"
	ColEndometriosisTrue             = "formula_endometriosis_true_value"
	ColEndometriosisFalse            = "formula_endometriosis_false_value"
	ColOvulatoryDisorderTrue         = "formula_ovulatory_disorder_true_value"
	ColOvulatoryDisorderFalse        = "formula_ovulatory_disorder_false_value"
	ColDiminishedOvarianReserveTrue  = "formula_diminished_ovarian_reserve_true_value"
	ColDiminishedOvarianReserveFalse = "formula_diminished_ovarian_reserve_false_value"
	ColUterineFactorTrue             = "formula_uterine_factor_true_value"
	ColUterineFactorFalse            = "formula_uterine_factor_false_value"
	ColOtherReasonTrue               = "formula_other_reason_true_value"
	ColOtherReasonFalse              = "formula_other_reason_false_value"
	ColUnexplainedInfertilityTrue    = "formula_unexplained_infertility_true_value"
	ColUnexplainedInfertilityFalse   = "formula_unexplained_infertility_false_value"

	ColPriorPregnancies0     = "formula_prior_pregnancies_0_value"
	ColPriorPregnancies1     = "formula_prior_pregnancies_1_value"
	ColPriorPregnancies2Plus = "formula_prior_pregnancies_2+_value"
	ColPriorLiveBirths0      = "formula_prior_live_births_0_value"
	ColPriorLiveBirths1      = "formula_prior_live_births_1_value"
	ColPriorLiveBirths2Plus  = "formula_prior_live_births_2+_value"
)

// SelectorColumns are the three columns that form a row's key
var SelectorColumns = []string{ColUsingOwnEggs, ColPreviousIVF, ColReasonKnown}

// NumericColumns are parsed as float64 when a record is looked up
var NumericColumns = []string{
	ColIntercept,
	ColAgeLinear, ColAgePowerCoeff, ColAgePowerFactor,
	ColBMILinear, ColBMIPowerCoeff, ColBMIPowerFactor,
	ColTubalFactorTrue, ColTubalFactorFalse,
	ColMaleFactorInfertilityTrue, ColMaleFactorInfertilityFalse,
	ColEndometriosisTrue, ColEndometriosisFalse,
	ColOvulatoryDisorderTrue, ColOvulatoryDisorderFalse,
	ColDiminishedOvarianReserveTrue, ColDiminishedOvarianReserveFalse,
	ColUterineFactorTrue, ColUterineFactorFalse,
	ColOtherReasonTrue, ColOtherReasonFalse,
	ColUnexplainedInfertilityTrue, ColUnexplainedInfertilityFalse,
	ColPriorPregnancies0, ColPriorPregnancies1, ColPriorPregnancies2Plus,
	ColPriorLiveBirths0, ColPriorLiveBirths1, ColPriorLiveBirths2Plus,
}

// AllColumns is the storage order used by SQL sources and CSV export
func AllColumns() []string {
	cols := make([]string, 0, len(SelectorColumns)+1+len(NumericColumns))
	cols = append(cols, SelectorColumns...)
	cols = append(cols, ColFormula)
	cols = append(cols, NumericColumns...)
	return cols
}

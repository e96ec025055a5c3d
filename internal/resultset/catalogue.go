package resultset

import (
	"github.com/user/pqc_analyzer_go/internal/config"
	"github.com/user/pqc_analyzer_go/internal/quantity"
)

// Entry binds a quantity definition to the key it is stored under in a
// result set.
type Entry struct {
	Key string
	quantity.Definition
}

// Catalogue lists every quantity of the batch pass in report order.
// Expected values are in display units.
var Catalogue = []Entry{
	{"vdp_poly_f", quantity.Definition{Name: "vdp_poly", Label: "Polysilicon VdP", Unit: "kOhm/sq", Expected: 2.4, Multiplier: 1e-3, Stray: 0.2}},
	{"vdp_poly_r", quantity.Definition{Name: "vdp_poly_rev", Label: "Polysilicon VdP reverse", Unit: "kOhm/sq", Expected: 2.4, Multiplier: 1e-3, Stray: 0.2}},
	{"vdp_n_f", quantity.Definition{Name: "vdp_N", Label: "N+ VdP", Unit: "Ohm/sq", Expected: 35, Multiplier: 1, Stray: 0.2}},
	{"vdp_n_r", quantity.Definition{Name: "vdp_N_rev", Label: "N+ VdP reverse", Unit: "Ohm/sq", Expected: 35, Multiplier: 1, Stray: 0.2}},
	{"vdp_pstop_f", quantity.Definition{Name: "vdp_pstop", Label: "P-stop VdP", Unit: "kOhm/sq", Expected: 19, Multiplier: 1e-3, Stray: 0.2}},
	{"vdp_pstop_r", quantity.Definition{Name: "vdp_pstop_rev", Label: "P-stop VdP reverse", Unit: "kOhm/sq", Expected: 19, Multiplier: 1e-3, Stray: 0.2}},

	{"t_line_n", quantity.Definition{Name: "t_line_n", Label: "Linewidth N+", Unit: "um", Expected: 35, Multiplier: 1, Stray: quantity.DefaultStray}},
	{"t_line_pstop2", quantity.Definition{Name: "t_line_pstop2", Label: "Linewidth P-stop 2 Wire", Unit: "um", Expected: 38, Multiplier: 1, Stray: quantity.DefaultStray}},
	{"t_line_pstop4", quantity.Definition{Name: "t_line_pstop4", Label: "Linewidth P-stop 4 Wire", Unit: "um", Expected: 55, Multiplier: 1, Stray: quantity.DefaultStray}},

	{"r_contact_n", quantity.Definition{Name: "r_contact_n", Label: "Rcontact N+", Unit: "Ohm", Expected: 27, Multiplier: 1, Stray: quantity.DefaultStray}},
	{"r_contact_poly", quantity.Definition{Name: "r_contact_poly", Label: "Rcontact polysilicon", Unit: "kOhm", Expected: 100, Multiplier: 1e-3, Stray: quantity.DefaultStray}},

	{"v_th", quantity.Definition{Name: "fet", Label: "FET Vth", Unit: "V", Expected: 4, Multiplier: 1, Stray: 0.25}},

	{"vdp_metclo_f", quantity.Definition{Name: "vdp_met_clover", Label: "Metal Cloverleaf VdP", Unit: "mOhm/sq", Expected: 25, Multiplier: 1e3, Stray: quantity.DefaultStray}},
	{"vdp_metclo_r", quantity.Definition{Name: "vdp_met_clover_rev", Label: "Metal Cloverleaf VdP reverse", Unit: "mOhm/sq", Expected: 25, Multiplier: 1e3, Stray: quantity.DefaultStray}},

	{"vdp_p_cross_bridge_f", quantity.Definition{Name: "vdp_cross_bridge", Label: "Cross Bridge VdP", Unit: "kOhm/sq", Expected: 1.5, Multiplier: 1e-3, Stray: quantity.DefaultStray}},
	{"vdp_p_cross_bridge_r", quantity.Definition{Name: "vdp_cross_bridge_rev", Label: "Cross Bridge VdP reverse", Unit: "kOhm/sq", Expected: 1.5, Multiplier: 1e-3, Stray: quantity.DefaultStray}},
	{"t_line_p_cross_bridge", quantity.Definition{Name: "t_line_cb", Label: "Linewidth cross bridge P", Unit: "um", Expected: 35, Multiplier: 1, Stray: quantity.DefaultStray}},

	{"v_bd", quantity.Definition{Name: "v_bd", Label: "Breakdown Voltage", Unit: "V", Expected: 215, Multiplier: 1, Stray: quantity.DefaultStray}},

	{"i600", quantity.Definition{Name: "i600", Label: "I @ 600V", Unit: "uA", Expected: 100, Multiplier: 1e6, Stray: 1}},
	{"v_fd", quantity.Definition{Name: "v_fd", Label: "Full depletion Voltage", Unit: "V", Expected: 260, Multiplier: 1, Stray: 0.33}},
	{"rho", quantity.Definition{Name: "rho", Label: "rho", Unit: "kOhm cm", Expected: 1.3, Multiplier: 0.1, Stray: quantity.DefaultStray}},
	{"conc", quantity.Definition{Name: "d_conc", Label: "Doping Concentration", Unit: "*1E12 cm^-3", Expected: 3.5, Multiplier: 1e-18, Stray: quantity.DefaultStray}},

	{"v_fb2", quantity.Definition{Name: "v_fb", Label: "Flatband voltage", Unit: "V", Expected: 2.5, Multiplier: 1, Stray: 0.33}},
	{"t_ox", quantity.Definition{Name: "t_ox", Label: "Oxide thickness", Unit: "um", Expected: 0.67, Multiplier: 1e6, Stray: 0.33}},
	{"n_ox", quantity.Definition{Name: "n_ox", Label: "Oxide concentration", Unit: "*1E10 cm^-2", Expected: 10.5, Multiplier: 1e-10, Stray: quantity.DefaultStray}},
	{"c_acc_m", quantity.Definition{Name: "c_acc", Label: "Accumulation capacitance", Unit: "pF", Expected: 85, Multiplier: 1e12, Stray: 0.2}},

	{"i_surf", quantity.Definition{Name: "i_surf", Label: "Surface current", Unit: "pA", Expected: 8, Multiplier: -1e12, Stray: 1}},
	{"i_surf05", quantity.Definition{Name: "i_surf05", Label: "Surface current 05", Unit: "pA", Expected: 11, Multiplier: -1e12, Stray: 1}},
	{"i_bulk05", quantity.Definition{Name: "i_bulk05", Label: "Bulk current 05", Unit: "pA", Expected: 0.7, Multiplier: -1e12, Stray: 1}},

	{"nvdp_poly_f", quantity.Definition{Name: "nvdp_poly", Label: "PolySi Swapped VdP", Unit: "kOhm/sq", Expected: 2.4, Multiplier: -1e-3, Stray: 0.2}},
	{"nvdp_poly_r", quantity.Definition{Name: "nvdp_poly_rev", Label: "PolySi Swapped VdP reverse", Unit: "kOhm/sq", Expected: 2.4, Multiplier: -1e-3, Stray: 0.2}},
	{"nvdp_n_f", quantity.Definition{Name: "nvdp_N", Label: "N+ Swapped VdP", Unit: "Ohm/sq", Expected: 35, Multiplier: -1, Stray: 0.2}},
	{"nvdp_n_r", quantity.Definition{Name: "nvdp_N_rev", Label: "N+ Swapped VdP reverse", Unit: "Ohm/sq", Expected: 35, Multiplier: -1, Stray: 0.2}},
	{"nvdp_pstop_f", quantity.Definition{Name: "nvdp_pstop", Label: "P-stop Swapped VdP", Unit: "kOhm/sq", Expected: 19, Multiplier: -1e-3, Stray: 0.2}},
	{"nvdp_pstop_r", quantity.Definition{Name: "nvdp_pstop_rev", Label: "P-stop Swapped VdP rev", Unit: "kOhm/sq", Expected: 19, Multiplier: -1e-3, Stray: 0.2}},

	{"r_chain_poly", quantity.Definition{Name: "r_chain_poly", Label: "Contact chain polysilicon", Unit: "kOhm", Expected: 100, Multiplier: 1e-3, Stray: quantity.DefaultStray}},
	{"r_chain_n", quantity.Definition{Name: "r_chain_n", Label: "Contact chain N+", Unit: "kOhm", Expected: 10, Multiplier: 1e-3, Stray: quantity.DefaultStray}},
	{"rho_meander_poly", quantity.Definition{Name: "rho_meander_poly", Label: "Meander polysilicon", Unit: "kOhm m", Expected: 2.7, Multiplier: 1e-3, Stray: quantity.DefaultStray}},
	{"rho_meander_metal", quantity.Definition{Name: "rho_meander_metal", Label: "Meander metal", Unit: "Ohm m", Expected: 41, Multiplier: 1, Stray: quantity.DefaultStray}},
	{"c_cap", quantity.Definition{Name: "c_cap", Label: "Test capacitor", Unit: "pF", Expected: 0.87, Multiplier: 1e12, Stray: quantity.DefaultStray}},
	{"t_cap", quantity.Definition{Name: "t_cap", Label: "Capacitor dielectric thickness", Unit: "um", Expected: 0.67, Multiplier: 1e6, Stray: 0.33}},
}

// Total describes a pooled quantity merged from several catalogue keys.
type Total struct {
	Name  string
	Label string
	Keys  []string
}

// Pooled lists the forward and reverse pairs merged into one statistic.
var Pooled = []Total{
	{Name: "vdp_poly_tot", Label: "PolySi VdP both", Keys: []string{"vdp_poly_f", "vdp_poly_r"}},
	{Name: "vdp_N_tot", Label: "N+ VdP both", Keys: []string{"vdp_n_f", "vdp_n_r"}},
	{Name: "vdp_pstop_tot", Label: "P-stop VdP both", Keys: []string{"vdp_pstop_f", "vdp_pstop_r"}},
	{Name: "nvdp_poly_tot", Label: "PolySi Swapped VdP", Keys: []string{"nvdp_poly_f", "nvdp_poly_r"}},
	{Name: "nvdp_N_tot", Label: "N+ Swapped VdP both", Keys: []string{"nvdp_n_f", "nvdp_n_r"}},
	{Name: "nvdp_pstop_tot", Label: "P-stop Swapped VdP", Keys: []string{"nvdp_pstop_f", "nvdp_pstop_r"}},
}

// newQuantity creates the quantity of e with the acceptance overrides of
// overrides applied.
func newQuantity(e Entry, overrides map[string]config.QuantityOverride) *quantity.Quantity {
	def := e.Definition
	o, ok := overrides[e.Key]
	if ok && o.Expected != nil {
		def.Expected = *o.Expected
	}
	if ok && o.Stray != nil {
		def.Stray = *o.Stray
	}
	q := quantity.New(def)
	if ok && o.Min != nil {
		q.SetMinAllowed(*o.Min)
	}
	if ok && o.Max != nil {
		q.SetMaxAllowed(*o.Max)
	}
	return q
}

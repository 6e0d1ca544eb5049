// Package decode compiles field mappings into decode plans.
//
// A Mapping describes, for one destination struct, which telemetry variable
// feeds each field and what to do when that variable is absent. Compile
// validates the mapping against a VariableHeader exactly once; the resulting
// Plan then decodes frames by reading fixed byte offsets, with every name
// lookup and type check already done.
//
//	type Car struct {
//		Speed, RPM float64
//		Boost      float64
//		Gear       int32
//		KPH        float64
//	}
//
//	m := decode.NewMapping[Car](
//		decode.Float64("speed", "Speed", func(c *Car, v float64) { c.Speed = v }),
//		decode.Float64("rpm", "RPM", func(c *Car, v float64) { c.RPM = v }),
//		decode.Float64("boost", "Boost", func(c *Car, v float64) { c.Boost = v }).Fallback(0),
//		decode.Int32("gear", "Gear", func(c *Car, v int32) { c.Gear = v }).Optional(),
//		decode.Calculated("kph", []string{"speed"}, func(c *Car, _ []byte) { c.KPH = c.Speed * 3.6 }),
//	)
//	plan, err := decode.Compile(m, header)
//
// Numeric widening from int32 and float32 into float64 is allowed. Array
// variables map onto slices of the same length. Calculated fields run after
// all direct fields, ordered by their declared dependencies; a dependency
// cycle fails compilation.
package decode

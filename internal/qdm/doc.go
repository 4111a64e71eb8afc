// Package qdm implements Quantile Delta Mapping (QDM) bias correction for
// simulated tropical-cyclone intensity samples.
//
// # Method
//
// QDM (Cannon, Sobie and Murdock, 2015) corrects a future-period simulated
// sample against an observed record while preserving the relative change in
// quantiles between the simulated reference period and the future period.
// Given a parametric family F fitted separately to the observed (o),
// reference (r) and future (f) samples:
//
//	u[i]     = F_f(x_f[i])                  quantile rank of each future value
//	delta[i] = x_f[i] / F_r⁻¹(u[i])         ratio mode
//	delta[i] = x_f[i] - F_r⁻¹(u[i])         additive mode
//	y[i]     = F_o⁻¹(u[i]) * delta[i]       ratio mode
//	y[i]     = F_o⁻¹(u[i]) + delta[i]       additive mode
//
// The output is aligned index-for-index with the future sample. Ratio mode is
// the default and suits non-negative, multiplicatively scaled quantities such
// as the central pressure deficit Δp = p_env − p_centre.
//
// # Distribution families
//
// The algorithm only needs fit, CDF and inverse-CDF operations, described by
// the [Family] interface. Built-in families live in the distribution package;
// callers may supply their own.
//
// # Boundary policy
//
// Probabilities passed to [Family.Quantile] are clipped to [eps, 1-eps]
// (eps defaults to [DefaultClip]) so that future values sitting on a support
// boundary map to a finite quantile instead of ±Inf. Anything non-finite that
// survives clipping is reported as a [NumericDomainError].
//
// # Errors
//
// Input samples are checked for emptiness and non-finite values before any
// fitting happens ([InvalidInputError]). A family that cannot be fitted to a
// sample yields a [FitError]. Neither is retried or defaulted.
//
// The package keeps no state between calls and performs no I/O. Logging is
// opt-in through [WithLogger].
package qdm

package render

import "github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/emit"

// The capability table is the public contract of which options each
// backend accepts. It is declared, not discovered: adding an option to
// a backend means adding it here, and a caller passing anything else
// has it dropped silently. SQL deliberately omits parallel - filtering
// it out is what makes the flag a uniform no-op there.

func capabilities(target string) (map[string]struct{}, bool) {
	switch target {
	case BackendRust:
		return optionSet(emit.OptParallel, emit.OptIntType), true
	case BackendGo:
		return optionSet(emit.OptParallel), true
	case BackendTS:
		return optionSet(emit.OptParallel), true
	case BackendCSharp:
		return optionSet(emit.OptParallel), true
	case BackendJulia:
		return optionSet(emit.OptParallel, emit.OptMode, emit.OptUnsafe, emit.OptExplain, emit.OptThreads), true
	case BackendSQL:
		return optionSet(emit.OptDialect, emit.OptExplain), true
	default:
		return nil, false
	}
}

// AcceptedOptions reports the option names a backend declares, for
// the CLI's backend listing. The bool is false for an unknown id.
func AcceptedOptions(target string) ([]string, bool) {
	switch target {
	case BackendRust:
		return []string{emit.OptParallel, emit.OptIntType}, true
	case BackendGo, BackendTS, BackendCSharp:
		return []string{emit.OptParallel}, true
	case BackendJulia:
		return []string{emit.OptParallel, emit.OptMode, emit.OptUnsafe, emit.OptExplain, emit.OptThreads}, true
	case BackendSQL:
		return []string{emit.OptDialect, emit.OptExplain}, true
	default:
		return nil, false
	}
}

func optionSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

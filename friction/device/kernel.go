package device

import (
	"fmt"
)

const kernelName = "lswStep"

// lswKernelSource evaluates one time step of one face per @inner thread.
// The sub-intervals are fused: theta, the four friction stages and the
// imposed state contribution of sub-interval o only depend on data of o
// and of earlier sub-intervals.
const lswKernelSource = `
@kernel void lswStep(%s) {
	for (int part = 0; part < NPART; ++part; @outer) {
		const real_t* QPlus = QPlus_PART(part);
		const real_t* QMinus = QMinus_PART(part);
		const real_t* Params = Params_PART(part);
		const real_t* FaceImp = FaceImp_PART(part);
		real_t* State = State_PART(part);
		real_t* AveragedSlip = AveragedSlip_PART(part);
		real_t* ImposedPlus = ImposedPlus_PART(part);
		real_t* ImposedMinus = ImposedMinus_PART(part);

		for (int f = 0; f < KpartMax; ++f; @inner) {
			if (f < K[part]) {
				const real_t* qPlus = QPlus + f*NORDER*QSIZE;
				const real_t* qMinus = QMinus + f*NORDER*QSIZE;
				const real_t* par = Params + f*NPARAM*NP;
				const real_t* imp = FaceImp + f*NIMP;
				real_t* st = State + f*NSTATE*NP;
				real_t* impPlus = ImposedPlus + f*QSIZE;
				real_t* impMinus = ImposedMinus + f*QSIZE;

				const real_t* sigma0 = par + P_STRESS_XX*NP;
				const real_t* tau1Init = par + P_STRESS_XY*NP;
				const real_t* tau2Init = par + P_STRESS_XZ*NP;
				const real_t* muS = par + P_MU_S*NP;
				const real_t* muD = par + P_MU_D*NP;
				const real_t* cohesion = par + P_COHESION*NP;
				const real_t* dC = par + P_DC*NP;
				const real_t* forcedRuptureTime = par + P_FORCED_RT*NP;

				real_t* mu = st + S_MU*NP;
				real_t* accSlip = st + S_ACC_SLIP*NP;
				real_t* slip1 = st + S_SLIP1*NP;
				real_t* slip2 = st + S_SLIP2*NP;
				real_t* slipRate = st + S_SLIP_RATE*NP;
				real_t* slipRate1 = st + S_SLIP_RATE1*NP;
				real_t* slipRate2 = st + S_SLIP_RATE2*NP;
				real_t* traction1 = st + S_TRACTION1*NP;
				real_t* traction2 = st + S_TRACTION2*NP;
				real_t* rtPending = st + S_RT_PENDING*NP;
				real_t* ruptureTime = st + S_RUPTURE_TIME*NP;
				real_t* dsPending = st + S_DS_PENDING*NP;
				real_t* dsTime = st + S_DS_TIME*NP;
				real_t* peakSlipRate = st + S_PEAK_SLIP_RATE*NP;
				real_t* regStrength = st + S_REG_STRENGTH*NP;

				const real_t etaS = imp[IMP_ETAS];
				const real_t invEtaS = imp[IMP_INVETAS];

				real_t sigma[NP], t1[NP], t2[NP];
				real_t strength[NP], stateVariable[NP], tmpSlip[NP];

				for (int i = 0; i < QSIZE; ++i) {
					impPlus[i] = REAL_ZERO;
					impMinus[i] = REAL_ZERO;
				}
				for (int i = 0; i < NP; ++i) {
					tmpSlip[i] = REAL_ZERO;
				}

				for (int o = 0; o < NORDER; ++o) {
					const real_t dt = TimeData[o];
					const real_t w = TimeData[NORDER + o];
					const real_t* qp = qPlus + o*QSIZE;
					const real_t* qm = qMinus + o*QSIZE;

					// theta = eta (v+ - v- + Z+^-1 t+ + Z-^-1 t-)
					for (int i = 0; i < NP; ++i) {
						real_t rhs[3], th[3];
						for (int k = 0; k < 3; ++k) {
							real_t r = qp[VEL(k)*NP + i] - qm[VEL(k)*NP + i];
							for (int j = 0; j < 3; ++j) {
								r += imp[IMP_INVZ + 3*k + j]*qp[TRAC(j)*NP + i] +
									imp[IMP_INVZN + 3*k + j]*qm[TRAC(j)*NP + i];
							}
							rhs[k] = r;
						}
						for (int k = 0; k < 3; ++k) {
							real_t s = REAL_ZERO;
							for (int j = 0; j < 3; ++j) {
								s += imp[IMP_ETA + 3*k + j]*rhs[j];
							}
							th[k] = s;
						}
						sigma[i] = th[0];
						t1[i] = th[1];
						t2[i] = th[2];
					}

					for (int i = 0; i < NB; ++i) {
						const real_t totalNormalStress = sigma0[i] + sigma[i];
						strength[i] = -cohesion[i] - mu[i]*fmin(totalNormalStress, REAL_ZERO);
#if SPECIALIZATION == SPEC_BIMATERIAL
						{
							const real_t expterm = exp(-(fabs(slipRate[i]) + V_STAR)*dt/PRAKASH_LENGTH);
							regStrength[i] = regStrength[i]*expterm -
								fmax(REAL_ZERO, -mu[i]*totalNormalStress)*(expterm - REAL_ONE);
						}
#endif
						const real_t totalTraction1 = tau1Init[i] + t1[i];
						const real_t totalTraction2 = tau2Init[i] + t2[i];
						const real_t absoluteTraction = hypot(totalTraction1, totalTraction2);

						slipRate[i] = fmax(REAL_ZERO, (absoluteTraction - strength[i])*invEtaS);
						const real_t divisor = strength[i] + etaS*slipRate[i];
						slipRate1[i] = slipRate[i]*totalTraction1/divisor;
						slipRate2[i] = slipRate[i]*totalTraction2/divisor;

						t1[i] = t1[i] - etaS*slipRate1[i];
						t2[i] = t2[i] - etaS*slipRate2[i];
						traction1[i] = t1[i];
						traction2[i] = t2[i];

						slip1[i] += slipRate1[i]*dt;
						slip2[i] += slipRate2[i]*dt;
					}
					for (int i = NB; i < NP; ++i) {
						t1[i] = REAL_ZERO;
						t2[i] = REAL_ZERO;
					}

					RESAMPLE(slipRate, stateVariable);
					for (int i = 0; i < NB; ++i) {
						accSlip[i] += stateVariable[i]*dt;
						stateVariable[i] = fmin(fabs(accSlip[i])/dC[i], REAL_ONE);
#if SPECIALIZATION == SPEC_FORCED
						{
							const real_t time = fullUpdateTime + dt;
							real_t forcing;
							if (T0 == REAL_ZERO) {
								forcing = (time >= forcedRuptureTime[i]) ? REAL_ONE : REAL_ZERO;
							} else {
								forcing = fmin(fmax((time - forcedRuptureTime[i])/T0, REAL_ZERO), REAL_ONE);
							}
							stateVariable[i] = fmax(stateVariable[i], forcing);
						}
#endif
						mu[i] = muS[i] - (muS[i] - muD[i])*stateVariable[i];
						tmpSlip[i] += slipRate[i]*dt;
					}

					for (int i = 0; i < NP; ++i) {
						const real_t th[3] = {sigma[i], t1[i], t2[i]};
						for (int k = 0; k < 3; ++k) {
							impMinus[TRAC(k)*NP + i] += w*th[k];
							impPlus[TRAC(k)*NP + i] += w*th[k];

							real_t vm = qm[VEL(k)*NP + i];
							real_t vp = qp[VEL(k)*NP + i];
							for (int j = 0; j < 3; ++j) {
								vm += imp[IMP_INVZN + 3*k + j]*(th[j] - qm[TRAC(j)*NP + i]);
								vp -= imp[IMP_INVZ + 3*k + j]*(th[j] - qp[TRAC(j)*NP + i]);
							}
							impMinus[VEL(k)*NP + i] += w*vm;
							impPlus[VEL(k)*NP + i] += w*vp;
						}
					}
				}

#if INSTANTANEOUS_HEALING
				for (int i = 0; i < NB; ++i) {
					if (slipRate[i] < U0) {
						mu[i] = muS[i];
						accSlip[i] = REAL_ZERO;
					}
				}
#endif
#if RF_OUTPUT
				for (int i = 0; i < NB; ++i) {
					if (rtPending[i] != REAL_ZERO && slipRate[i] > RF_THRESHOLD) {
						ruptureTime[i] = fullUpdateTime;
						rtPending[i] = REAL_ZERO;
					}
				}
#endif
#if DS_OUTPUT
				for (int i = 0; i < NB; ++i) {
					if (dsPending[i] != REAL_ZERO && fabs(accSlip[i]) >= dC[i]) {
						dsTime[i] = fullUpdateTime;
						dsPending[i] = REAL_ZERO;
					}
				}
#endif
				for (int i = 0; i < NB; ++i) {
					if (slipRate[i] > peakSlipRate[i]) {
						peakSlipRate[i] = slipRate[i];
					}
				}
#if MAGNITUDE_OUTPUT
				{
					real_t sum = REAL_ZERO;
					for (int i = 0; i < NB; ++i) {
						sum += tmpSlip[i];
					}
					AveragedSlip[f] += sum/NB;
				}
#endif
			}
		}
	}
}
`

// indexMacro maps k in [0,3) to one of three quantity indices
func indexMacro(idx []int) string {
	return fmt.Sprintf("((k) == 0 ? %d : ((k) == 1 ? %d : %d))", idx[0], idx[1], idx[2])
}
